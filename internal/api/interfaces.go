// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/answer"
	"github.com/pdf-qa/backend/internal/cache"
	"github.com/pdf-qa/backend/internal/models"
)

// DocumentHandler handles PDF upload and lookup
type DocumentHandler interface {
	HandleUploadDocument(c echo.Context) error
	HandleUploadDocumentBase64(c echo.Context) error
	HandleGetDocument(c echo.Context) error
	HandleGetDocumentFile(c echo.Context) error
}

// AnswerHandler handles questions about uploaded documents
type AnswerHandler interface {
	HandleAnswerStream(c echo.Context) error
	HandleAnswer(c echo.Context) error
}

// InteractionHandler exposes the interaction log
type InteractionHandler interface {
	HandleListInteractions(c echo.Context) error
	HandleListInteractionsMsgpack(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// DocumentResolver is the text cache as seen by the handlers.
type DocumentResolver interface {
	ResolveText(ctx context.Context, filename string, raw []byte) (*cache.Resolution, error)
	Lookup(ctx context.Context, id string) (*models.Document, error)
}

// Answerer produces answers, streamed or in one piece.
type Answerer interface {
	Run(ctx context.Context, req answer.Request, sink answer.Sink) answer.Result
	Answer(ctx context.Context, req answer.Request) (answer.Result, error)
}

// InteractionLister reads the interaction log.
type InteractionLister interface {
	Recent(ctx context.Context, limit int) ([]*models.Interaction, error)
}
