// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string, reason string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
		Details: reason,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewPayloadTooLargeError creates a 413 error for oversized uploads
func NewPayloadTooLargeError(limit int64) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "PAYLOAD_TOO_LARGE",
		Message: fmt.Sprintf("upload exceeds %d bytes", limit),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// FromDomainError maps errors returned by the cache, store and answer
// packages to API errors. It returns nil for errors it does not recognize.
func FromDomainError(err error) *APIError {
	var (
		apiErr *APIError
		ve     *models.ValidationError
		ee     *models.ExtractionError
		se     *models.StorageError
		re     *models.RemoteServiceError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &ve):
		return NewValidationError(ve.Field, ve.Reason)
	case errors.As(err, &ee):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "EXTRACTION_ERROR",
			Message: "could not extract text from the PDF",
			Details: ee.Err.Error(),
		}
	case errors.Is(err, storage.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "document not found"}
	case errors.As(err, &se):
		return &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "STORAGE_ERROR",
			Message: "storage operation failed",
			Details: se.Op,
		}
	case errors.As(err, &re):
		return &APIError{
			Status:  http.StatusBadGateway,
			Code:    "REMOTE_SERVICE_ERROR",
			Message: "model request failed",
			Details: re.Err.Error(),
		}
	}
	return nil
}

// ErrorHandler returns the Echo error handler.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(logger, showDetails)
func ErrorHandler(logger *slog.Logger, showDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := FromDomainError(err)
		if apiErr == nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				apiErr = &APIError{
					Status:  he.Code,
					Code:    "HTTP_ERROR",
					Message: fmt.Sprintf("%v", he.Message),
				}
			} else {
				apiErr = &APIError{
					Status:  http.StatusInternalServerError,
					Code:    "UNKNOWN_ERROR",
					Message: "An unexpected error occurred",
				}
				if showDetails {
					apiErr.Details = err.Error()
				}
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", c.Request().URL.Path, "code", apiErr.Code, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}
