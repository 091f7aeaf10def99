// Package interaction records answered questions for later review.
package interaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

// Logger appends interaction records to the store. Recording is best effort:
// a failed write is logged and never reaches the client.
type Logger struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLogger creates a Logger writing to store.
func NewLogger(store storage.Store, logger *slog.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// Record stores one interaction with a fresh id and the current time. It
// reports whether the record was written.
func (l *Logger) Record(ctx context.Context, reference, query, response string) bool {
	rec := &models.Interaction{
		ID:           uuid.New().String(),
		Timestamp:    l.now().UTC(),
		PDFReference: reference,
		Query:        query,
		Response:     response,
	}
	if err := l.store.InsertInteraction(ctx, rec); err != nil {
		l.logger.Warn("failed to log interaction", "reference", reference, "error", err)
		return false
	}
	l.logger.Debug("interaction logged", "id", rec.ID, "reference", reference)
	return true
}

// Recent returns up to limit interactions, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]*models.Interaction, error) {
	return l.store.ListInteractions(ctx, limit)
}
