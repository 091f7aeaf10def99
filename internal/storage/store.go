// Package storage persists cached document text and the interaction log.
package storage

import (
	"context"
	"errors"

	"github.com/pdf-qa/backend/internal/models"
)

// ErrNotFound is returned by point lookups that match no record.
var ErrNotFound = errors.New("not found")

// Store is the persistent collaborator behind the text cache and the
// interaction logger. It only issues point reads, single-row inserts and a
// bounded listing; records are never updated or deleted.
type Store interface {
	// GetDocument returns the cached document with the given id, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// InsertDocument stores doc unless a record with the same id exists.
	// It reports whether this call created the record. Losing a race against
	// a concurrent insert of the same id is not an error.
	InsertDocument(ctx context.Context, doc *models.Document) (bool, error)

	// InsertInteraction appends one interaction record.
	InsertInteraction(ctx context.Context, rec *models.Interaction) error

	// ListInteractions returns up to limit interactions, newest first.
	ListInteractions(ctx context.Context, limit int) ([]*models.Interaction, error)

	// Driver names the backend, e.g. "sqlite".
	Driver() string

	Close() error
}

func storageErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *models.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &models.StorageError{Op: op, Err: err}
}
