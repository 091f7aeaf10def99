package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdf-qa/backend/internal/archive"
	"github.com/pdf-qa/backend/internal/cache"
	"github.com/pdf-qa/backend/internal/extract"
	"github.com/pdf-qa/backend/internal/logging"
	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/testutil"
)

func TestDocumentHandler_HandleUploadDocument(t *testing.T) {
	ext := &testutil.CountingExtractor{Text: "extracted"}
	env := newTestEnv(t, ext, &testutil.ScriptedGenerator{}, nil)
	data := []byte("%PDF-1.4 pretend")

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newUploadRequest("report.pdf", "application/pdf", data), rec)
	require.NoError(t, env.handlers.Documents.HandleUploadDocument(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var first models.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, cache.DocumentID(data), first.ID)
	assert.Equal(t, "report.pdf", first.Filename)
	assert.Equal(t, len(data), first.Size)
	assert.False(t, first.Cached)

	rec = httptest.NewRecorder()
	c = e.NewContext(newUploadRequest("again.pdf", "application/pdf", data), rec)
	require.NoError(t, env.handlers.Documents.HandleUploadDocument(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var second models.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Cached)

	assert.Equal(t, 1, ext.Calls())
}

func TestDocumentHandler_RejectsNonPDFBeforeAnyWork(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"plain text", "text/plain"},
		{"octet stream", "application/octet-stream"},
		{"missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &testutil.CountingExtractor{Text: "never"}
			env := newTestEnv(t, ext, &testutil.ScriptedGenerator{}, nil)

			rec := httptest.NewRecorder()
			c := echo.New().NewContext(newUploadRequest("notes.txt", tt.contentType, []byte("hello")), rec)
			err := env.handlers.Documents.HandleUploadDocument(c)

			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected APIError, got %T", err)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

			gets, inserts, _ := env.store.Counts()
			assert.Equal(t, 0, ext.Calls())
			assert.Equal(t, 0, gets)
			assert.Equal(t, 0, inserts)
		})
	}
}

func TestDocumentHandler_UploadErrors(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		env := newTestEnv(t, &testutil.CountingExtractor{}, &testutil.ScriptedGenerator{}, nil)
		body, formType := multipartUpload("other_field", "a.pdf", "application/pdf", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
		req.Header.Set(echo.HeaderContentType, formType)

		rec := env.serve(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"BAD_REQUEST"`)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, &testutil.CountingExtractor{}, &testutil.ScriptedGenerator{}, nil)
		rec := env.serve(newUploadRequest("big.pdf", "application/pdf", make([]byte, 2<<20)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("malformed pdf", func(t *testing.T) {
		env := newTestEnv(t, extract.NewPDFExtractor(logging.Discard()), &testutil.ScriptedGenerator{}, nil)
		rec := env.serve(newUploadRequest("broken.pdf", "application/pdf", []byte("%PDF-1.4 garbage")))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"EXTRACTION_ERROR"`)
		assert.Equal(t, 0, env.store.Documents())
	})

	t.Run("storage failure", func(t *testing.T) {
		env := newTestEnv(t, &testutil.CountingExtractor{Text: "x"}, &testutil.ScriptedGenerator{}, nil)
		env.store.InsertDocumentErr = &models.StorageError{Op: "insert document", Err: io.ErrUnexpectedEOF}
		rec := env.serve(newUploadRequest("a.pdf", "application/pdf", []byte("x")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"STORAGE_ERROR"`)
	})
}

func TestDocumentHandler_RealPDF(t *testing.T) {
	env := newTestEnv(t, extract.NewPDFExtractor(logging.Discard()), &testutil.ScriptedGenerator{}, nil)
	data := testutil.MinimalPDF("Quarterly revenue grew.")

	rec := env.serve(newUploadRequest("q.pdf", "application/pdf", data))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	doc, err := env.cache.Lookup(t.Context(), cache.DocumentID(data))
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Quarterly revenue grew.")
}

func TestDocumentHandler_HandleUploadDocumentBase64(t *testing.T) {
	tests := []struct {
		name       string
		body       uploadDocumentRequest
		wantStatus int
		errCode    string
	}{
		{
			name:       "valid upload",
			body:       uploadDocumentRequest{Name: "a.pdf", ContentType: "application/pdf", Data: base64.StdEncoding.EncodeToString([]byte("pdf"))},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "empty name",
			body:       uploadDocumentRequest{ContentType: "application/pdf", Data: "cGRm"},
			wantStatus: http.StatusBadRequest,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "not a pdf",
			body:       uploadDocumentRequest{Name: "a.txt", ContentType: "text/plain", Data: "cGRm"},
			wantStatus: http.StatusBadRequest,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "invalid base64",
			body:       uploadDocumentRequest{Name: "a.pdf", ContentType: "application/pdf", Data: "not-valid-base64!!!"},
			wantStatus: http.StatusBadRequest,
			errCode:    "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &testutil.CountingExtractor{Text: "t"}, &testutil.ScriptedGenerator{}, nil)
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/documents/base64", bytes.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

			rec := env.serve(req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.errCode != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.errCode+`"`)
			}
		})
	}
}

func TestDocumentHandler_HandleGetDocument(t *testing.T) {
	env := newTestEnv(t, &testutil.CountingExtractor{}, &testutil.ScriptedGenerator{}, nil)
	env.store.PutDocument(&models.Document{ID: "abc", Filename: "a.pdf", Text: "12345"})

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/documents/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.DocumentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, models.DocumentInfo{ID: "abc", Filename: "a.pdf", TextLength: 5}, info)
	assert.NotContains(t, rec.Body.String(), "12345")

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "document not found: missing")
}

func TestDocumentHandler_HandleGetDocumentFile(t *testing.T) {
	t.Run("archive configured", func(t *testing.T) {
		arch, err := archive.NewLocalArchive(filepath.Join(t.TempDir(), "originals"))
		require.NoError(t, err)
		env := newTestEnv(t, &testutil.CountingExtractor{Text: "t"}, &testutil.ScriptedGenerator{}, arch)
		data := []byte("%PDF-1.4 original bytes")

		rec := env.serve(newUploadRequest("orig.pdf", "application/pdf", data))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/documents/"+cache.DocumentID(data)+"/file", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, data, rec.Body.Bytes())
		assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="orig.pdf"`)
	})

	t.Run("archive not configured", func(t *testing.T) {
		env := newTestEnv(t, &testutil.CountingExtractor{}, &testutil.ScriptedGenerator{}, nil)
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/documents/x/file", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
