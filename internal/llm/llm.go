// Package llm wraps the generative model backends behind one small interface.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdf-qa/backend/internal/config"
)

// Stream yields answer text incrementally. Next returns io.EOF once the model
// has finished.
type Stream interface {
	Next() (string, error)
	Close() error
}

// Generator produces answers for a prompt. Each call is independent; no
// conversation state is kept between calls.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string) (Stream, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the Generator selected by cfg.Model.Provider.
func New(ctx context.Context, cfg *config.AppConfig) (Generator, error) {
	m := cfg.Model
	switch m.Provider {
	case config.ProviderVertex:
		return NewVertex(ctx, m.ProjectID, m.Region, m.Name, m.Temperature)
	case config.ProviderOllama:
		return NewOllama(m.OllamaHost, m.Name, m.Temperature, http.DefaultClient)
	default:
		return nil, fmt.Errorf("unknown model provider %q", m.Provider)
	}
}
