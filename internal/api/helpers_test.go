package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/answer"
	"github.com/pdf-qa/backend/internal/archive"
	"github.com/pdf-qa/backend/internal/cache"
	"github.com/pdf-qa/backend/internal/extract"
	"github.com/pdf-qa/backend/internal/interaction"
	"github.com/pdf-qa/backend/internal/logging"
	"github.com/pdf-qa/backend/internal/testutil"
)

type testEnv struct {
	store    *testutil.MemoryStore
	gen      *testutil.ScriptedGenerator
	cache    *cache.Cache
	handlers *Handlers
	e        *echo.Echo
}

func newTestEnv(t *testing.T, ext extract.Extractor, gen *testutil.ScriptedGenerator, arch archive.Archiver) *testEnv {
	t.Helper()
	logger := logging.Discard()
	store := testutil.NewMemoryStore()

	var opts []cache.Option
	if arch != nil {
		opts = append(opts, cache.WithArchiver(arch))
	}
	c := cache.New(store, ext, logger, opts...)
	recorder := interaction.NewLogger(store, logger)
	pipeline := answer.New(c, gen, recorder, logger, answer.WithChunkDelay(0))

	handlers := NewHandlers(&Dependencies{
		Documents:     c,
		Answers:       pipeline,
		Interactions:  recorder,
		Archive:       arch,
		MaxUploadSize: 1 << 20,
		Version:       "test",
		StoreDriver:   store.Driver(),
		ModelProvider: "scripted",
		Logger:        logger,
	})

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger, true)
	RegisterRoutes(e, handlers)

	return &testEnv{store: store, gen: gen, cache: c, handlers: handlers, e: e}
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// multipartUpload builds a form with one file part whose declared content
// type is contentType.
func multipartUpload(field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, _ := writer.CreatePart(header)
	part.Write(data)
	writer.Close()
	return body, writer.FormDataContentType()
}

func newUploadRequest(filename, contentType string, data []byte) *http.Request {
	body, formType := multipartUpload(UploadField, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, formType)
	return req
}
