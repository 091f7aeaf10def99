package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pdf-qa/backend/internal/extract"
)

// CountingExtractor returns Text (or Err) and counts calls.
type CountingExtractor struct {
	Text  string
	Err   error
	Delay time.Duration

	calls atomic.Int32
}

var _ extract.Extractor = (*CountingExtractor)(nil)

func (e *CountingExtractor) Extract(ctx context.Context, _ []byte) (extract.Extraction, error) {
	e.calls.Add(1)
	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return extract.Extraction{}, ctx.Err()
		}
	}
	if e.Err != nil {
		return extract.Extraction{}, e.Err
	}
	return extract.Extraction{Pages: []string{e.Text}, Text: e.Text}, nil
}

// Calls returns the number of Extract invocations.
func (e *CountingExtractor) Calls() int {
	return int(e.calls.Load())
}
