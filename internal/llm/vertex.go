package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

// Vertex generates answers with a Gemini model on Vertex AI.
type Vertex struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewVertex creates a Vertex AI client for project/region.
func NewVertex(ctx context.Context, projectID, region, model string, temperature float32) (*Vertex, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a vertex client")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &Vertex{client: client, model: model, temperature: temperature}, nil
}

func (v *Vertex) generativeModel() *genai.GenerativeModel {
	m := v.client.GenerativeModel(v.model)
	m.SetTemperature(v.temperature)
	return m
}

// GenerateStream implements Generator. Closing the stream cancels the
// underlying call.
func (v *Vertex) GenerateStream(ctx context.Context, prompt string) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := v.generativeModel().GenerateContentStream(ctx, genai.Text(prompt))
	return &vertexStream{it: it, cancel: cancel}, nil
}

// Generate implements Generator.
func (v *Vertex) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := v.generativeModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

type vertexStream struct {
	it     *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *vertexStream) Next() (string, error) {
	resp, err := s.it.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func (s *vertexStream) Close() error {
	s.cancel()
	return nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
