package models

// Chunk is one piece of an answer forwarded to the client. Err marks chunks
// that report a failure instead of model output.
type Chunk struct {
	Text string
	Err  bool
}
