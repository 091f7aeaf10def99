// routes.go - Route registration helpers
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/archive"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Documents     DocumentResolver
	Answers       Answerer
	Interactions  InteractionLister
	Archive       archive.Archiver // optional
	MaxUploadSize int64
	Version       string
	StoreDriver   string
	ModelProvider string
	Logger        *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health       HealthHandler
	Documents    DocumentHandler
	Answers      AnswerHandler
	Interactions InteractionHandler
	WebSocket    *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(deps.Version, deps.StoreDriver, deps.ModelProvider),
		Documents:    NewDocumentHandler(deps.Documents, deps.Archive, deps.MaxUploadSize, deps.Logger),
		Answers:      NewAnswerHandler(deps.Answers, deps.Logger),
		Interactions: NewInteractionHandler(deps.Interactions),
		WebSocket:    NewWebSocketHandler(deps.Answers, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Documents
	docGroup := apiGroup.Group("/documents")
	docGroup.POST("", handlers.Documents.HandleUploadDocument)
	docGroup.POST("/base64", handlers.Documents.HandleUploadDocumentBase64)
	docGroup.GET("/:id", handlers.Documents.HandleGetDocument)
	docGroup.GET("/:id/file", handlers.Documents.HandleGetDocumentFile)
	docGroup.POST("/:id/answer", handlers.Answers.HandleAnswer)

	// Streaming answers
	apiGroup.GET("/answer-stream", handlers.Answers.HandleAnswerStream)
	apiGroup.GET("/ws/answer", handlers.WebSocket.HandleWebSocket)

	// Interaction log
	apiGroup.GET("/interactions", handlers.Interactions.HandleListInteractions)
	apiGroup.GET("/interactions/msgpack", handlers.Interactions.HandleListInteractionsMsgpack)
}
