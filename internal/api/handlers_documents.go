// handlers_documents.go - PDF upload and lookup handlers
package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/archive"
	"github.com/pdf-qa/backend/internal/extract"
	"github.com/pdf-qa/backend/internal/models"
)

// UploadField is the multipart field carrying the PDF.
const UploadField = "pdf_file"

// DocumentHandlerImpl implements the DocumentHandler interface
type DocumentHandlerImpl struct {
	docs          DocumentResolver
	archive       archive.Archiver
	maxUploadSize int64
	logger        *slog.Logger
}

// NewDocumentHandler creates a new document handler instance
func NewDocumentHandler(docs DocumentResolver, arch archive.Archiver, maxUploadSize int64, logger *slog.Logger) DocumentHandler {
	return &DocumentHandlerImpl{
		docs:          docs,
		archive:       arch,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// HandleUploadDocument accepts a multipart PDF upload and resolves its text.
// Responds 201 when the text was extracted now, 200 when it was cached.
func (h *DocumentHandlerImpl) HandleUploadDocument(c echo.Context) error {
	file, err := c.FormFile(UploadField)
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	// Rejected before any hashing or extraction.
	if ct := file.Header.Get(echo.HeaderContentType); !extract.IsPDF(ct) {
		return NewValidationError(UploadField, fmt.Sprintf("content type %q is not %s", ct, extract.ContentTypePDF))
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		return NewPayloadTooLargeError(h.maxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}

	return h.resolve(c, file.Filename, raw)
}

// HandleUploadDocumentBase64 accepts a PDF as base64 JSON
func (h *DocumentHandlerImpl) HandleUploadDocumentBase64(c echo.Context) error {
	var req uploadDocumentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}
	if h.maxUploadSize > 0 && int64(base64.StdEncoding.DecodedLen(len(req.Data))) > h.maxUploadSize {
		return NewPayloadTooLargeError(h.maxUploadSize)
	}

	raw, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	return h.resolve(c, req.Name, raw)
}

func (h *DocumentHandlerImpl) resolve(c echo.Context, filename string, raw []byte) error {
	res, err := h.docs.ResolveText(c.Request().Context(), filename, raw)
	if err != nil {
		if apiErr := FromDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to process document", err)
	}

	status := http.StatusCreated
	if res.CacheHit {
		status = http.StatusOK
	}
	h.logger.Info("document uploaded", "id", res.Document.ID, "filename", filename, "cached", res.CacheHit)

	return c.JSON(status, models.UploadResult{
		ID:       res.Document.ID,
		Filename: filename,
		Size:     res.Size,
		Cached:   res.CacheHit,
	})
}

// HandleGetDocument returns metadata for a cached document
func (h *DocumentHandlerImpl) HandleGetDocument(c echo.Context) error {
	id := c.Param("id")
	doc, err := h.docs.Lookup(c.Request().Context(), id)
	if err != nil {
		return h.lookupError(id, err)
	}
	return c.JSON(http.StatusOK, doc.Info())
}

// HandleGetDocumentFile downloads the archived original upload
func (h *DocumentHandlerImpl) HandleGetDocumentFile(c echo.Context) error {
	if h.archive == nil {
		return NewServiceUnavailableError("document archive is not configured")
	}

	id := c.Param("id")
	ctx := c.Request().Context()
	doc, err := h.docs.Lookup(ctx, id)
	if err != nil {
		return h.lookupError(id, err)
	}

	rc, err := h.archive.Open(ctx, id)
	if errors.Is(err, archive.ErrNotArchived) {
		return NewNotFoundError("archived document", id)
	}
	if err != nil {
		return NewInternalError("failed to open archived document", err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Stream(http.StatusOK, extract.ContentTypePDF, rc)
}

func (h *DocumentHandlerImpl) lookupError(id string, err error) error {
	apiErr := FromDomainError(err)
	if apiErr == nil {
		return NewInternalError("failed to look up document", err)
	}
	if apiErr.Status == http.StatusNotFound {
		return NewNotFoundError("document", id)
	}
	return apiErr
}

type uploadDocumentRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // Base64-encoded content
}

func (r *uploadDocumentRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name", "required")
	}
	if !extract.IsPDF(r.ContentType) {
		return NewValidationError("contentType", fmt.Sprintf("%q is not %s", r.ContentType, extract.ContentTypePDF))
	}
	if r.Data == "" {
		return NewValidationError("data", "required")
	}
	return nil
}
