// Package extract turns uploaded PDF bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdf-qa/backend/internal/models"
)

// ContentTypePDF is the only upload content type accepted.
const ContentTypePDF = "application/pdf"

// Extraction is the text of a document, page by page.
type Extraction struct {
	Pages []string
	Text  string // pages concatenated without separator
}

// Extractor converts raw document bytes to text.
type Extractor interface {
	Extract(ctx context.Context, raw []byte) (Extraction, error)
}

// IsPDF reports whether a declared content type is application/pdf.
// Parameters such as charset are ignored.
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, ContentTypePDF)
}

var disableConfigDir sync.Once

// PDFExtractor validates documents with pdfcpu and reads per-page plain text
// with ledongthuc/pdf.
type PDFExtractor struct {
	logger *slog.Logger
	conf   *model.Configuration
}

// NewPDFExtractor returns an extractor using relaxed validation.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFExtractor{logger: logger, conf: conf}
}

// Extract implements Extractor. Every failure, including a panic inside the
// PDF reader, is returned as *models.ExtractionError.
func (e *PDFExtractor) Extract(ctx context.Context, raw []byte) (out Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Extraction{}
			err = &models.ExtractionError{Err: fmt.Errorf("pdf reader panic: %v", r)}
		}
	}()

	if len(raw) == 0 {
		return Extraction{}, &models.ExtractionError{Err: fmt.Errorf("empty document")}
	}

	pageCount, err := api.PageCount(bytes.NewReader(raw), e.conf)
	if err != nil {
		return Extraction{}, &models.ExtractionError{Err: fmt.Errorf("failed to get page count: %w", err)}
	}
	if pageCount == 0 {
		return Extraction{}, &models.ExtractionError{Err: fmt.Errorf("document has no pages")}
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Extraction{}, &models.ExtractionError{Err: fmt.Errorf("failed to create PDF reader: %w", err)}
	}

	n := reader.NumPage()
	if n != pageCount {
		e.logger.Warn("page count mismatch", "validated", pageCount, "readable", n)
	}

	pages := make([]string, 0, n)
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Extraction{}, &models.ExtractionError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, text)
		sb.WriteString(text)
	}

	e.logger.Debug("extracted document text", "pages", n, "chars", sb.Len())
	return Extraction{Pages: pages, Text: sb.String()}, nil
}
