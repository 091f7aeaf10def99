package models

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cause := io.ErrUnexpectedEOF

	var extractErr *ExtractionError
	assert.True(t, errors.As(error(&ExtractionError{Err: cause}), &extractErr))
	assert.ErrorIs(t, &ExtractionError{Err: cause}, cause)
	assert.ErrorIs(t, &StorageError{Op: "insert document", Err: cause}, cause)
	assert.ErrorIs(t, &RemoteServiceError{Err: cause}, cause)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid pdf_file: content type must be application/pdf",
		(&ValidationError{Field: "pdf_file", Reason: "content type must be application/pdf"}).Error())
	assert.Equal(t, "storage get document: unexpected EOF",
		(&StorageError{Op: "get document", Err: io.ErrUnexpectedEOF}).Error())
}

func TestDocumentInfo(t *testing.T) {
	doc := &Document{ID: "abc", Filename: "a.pdf", Text: "hello"}
	info := doc.Info()
	assert.Equal(t, DocumentInfo{ID: "abc", Filename: "a.pdf", TextLength: 5}, info)
}
