// Package archive keeps the original bytes of uploaded documents, write-once,
// under their content-derived id.
package archive

import (
	"context"
	"errors"
	"io"
)

// ErrNotArchived is returned by Open when no original exists for an id.
var ErrNotArchived = errors.New("document not archived")

// Archiver stores and serves original uploads.
type Archiver interface {
	// Archive stores raw under id. Archiving an id that already exists is a
	// no-op.
	Archive(ctx context.Context, id string, raw []byte) error

	// Open returns the archived bytes for id, or ErrNotArchived.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

func objectName(id string) string {
	return id + ".pdf"
}
