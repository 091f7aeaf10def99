package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdf-qa/backend/internal/logging"
	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &models.ValidationError{Field: "pdf_file", Reason: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"extraction", &models.ExtractionError{Err: errors.New("xref")}, http.StatusUnprocessableEntity, "EXTRACTION_ERROR"},
		{"storage", &models.StorageError{Op: "get document", Err: errors.New("io")}, http.StatusInternalServerError, "STORAGE_ERROR"},
		{"remote", &models.RemoteServiceError{Err: errors.New("503")}, http.StatusBadGateway, "REMOTE_SERVICE_ERROR"},
		{"not found", storage.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped", fmt.Errorf("resolve: %w", &models.ExtractionError{Err: errors.New("x")}), http.StatusUnprocessableEntity, "EXTRACTION_ERROR"},
		{"api error", NewNotFoundError("document", "x"), http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromDomainError(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}

	assert.Nil(t, FromDomainError(errors.New("plain")))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		details    bool
		wantStatus int
		wantBody   string
	}{
		{"api error", NewValidationError("query", "required"), false, http.StatusBadRequest, `"code":"VALIDATION_ERROR"`},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), false, http.StatusMethodNotAllowed, `"code":"HTTP_ERROR"`},
		{"unknown hidden", errors.New("secret detail"), false, http.StatusInternalServerError, `"code":"UNKNOWN_ERROR"`},
		{"unknown shown", errors.New("secret detail"), true, http.StatusInternalServerError, `"details":"secret detail"`},
		{"domain", &models.RemoteServiceError{Err: errors.New("down")}, false, http.StatusBadGateway, `"code":"REMOTE_SERVICE_ERROR"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(logging.Discard(), tt.details)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if !tt.details {
				assert.NotContains(t, rec.Body.String(), "secret detail")
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/health", nil), rec)

	require.NoError(t, NewHealthHandler("1.2.3", "sqlite", "vertex").HandleHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.3","store":"sqlite","model":"vertex"}`, rec.Body.String())
}
