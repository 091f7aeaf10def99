package models

// Document is a cached extraction keyed by the content hash of the uploaded file.
// Records are created once and never updated.
type Document struct {
	ID       string `json:"id" firestore:"id"`
	Filename string `json:"filename" firestore:"filename"`
	Text     string `json:"-" firestore:"text"`
}

// DocumentInfo is the metadata view of a Document returned by the API.
type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	TextLength int    `json:"textLength"`
}

// Info returns the metadata view of d.
func (d *Document) Info() DocumentInfo {
	return DocumentInfo{
		ID:         d.ID,
		Filename:   d.Filename,
		TextLength: len(d.Text),
	}
}

// UploadResult describes the outcome of a document upload.
type UploadResult struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Cached   bool   `json:"cached"` // true when the text was served from the cache
}
