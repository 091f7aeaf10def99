// handlers_answer.go - Question answering handlers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/answer"
)

// AnswerHandlerImpl implements the AnswerHandler interface
type AnswerHandlerImpl struct {
	answers Answerer
	logger  *slog.Logger
}

// NewAnswerHandler creates a new answer handler instance
func NewAnswerHandler(answers Answerer, logger *slog.Logger) AnswerHandler {
	return &AnswerHandlerImpl{answers: answers, logger: logger}
}

// HandleAnswerStream streams an answer via SSE. Every stream ends with a
// close event, including when the document is unknown.
func (h *AnswerHandlerImpl) HandleAnswerStream(c echo.Context) error {
	req := answer.Request{
		DocumentID: c.QueryParam("pdf_id"),
		Filename:   c.QueryParam("pdf_filename"),
		Query:      c.QueryParam("query"),
	}
	if strings.TrimSpace(req.Query) == "" {
		return NewValidationError("query", "required")
	}
	if req.DocumentID == "" {
		return NewValidationError("pdf_id", "required")
	}

	sink := newSSESink(c.Response())
	res := h.answers.Run(c.Request().Context(), req, sink)

	h.logger.Info("answer stream finished",
		"id", req.DocumentID,
		"filename", req.Filename,
		"chunks", res.Chunks,
		"failed", res.Failed,
		"recorded", res.Recorded,
	)
	return nil
}

// HandleAnswer returns a complete answer as JSON
func (h *AnswerHandlerImpl) HandleAnswer(c echo.Context) error {
	var body answerRequest
	if err := c.Bind(&body); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if strings.TrimSpace(body.Query) == "" {
		return NewValidationError("query", "required")
	}

	id := c.Param("id")
	res, err := h.answers.Answer(c.Request().Context(), answer.Request{DocumentID: id, Query: body.Query})
	if err != nil {
		apiErr := FromDomainError(err)
		if apiErr == nil {
			return NewInternalError("failed to answer", err)
		}
		if apiErr.Status == http.StatusNotFound {
			return NewNotFoundError("document", id)
		}
		return apiErr
	}

	return c.JSON(http.StatusOK, answerResponse{Answer: res.Response, Recorded: res.Recorded})
}

type answerRequest struct {
	Query string `json:"query"`
}

type answerResponse struct {
	Answer   string `json:"answer"`
	Recorded bool   `json:"recorded"`
}
