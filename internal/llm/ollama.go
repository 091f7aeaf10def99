package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Ollama generates answers with a model served by a local Ollama daemon.
type Ollama struct {
	client      *api.Client
	model       string
	temperature float32
}

// NewOllama creates a client for the Ollama server at host.
func NewOllama(host, model string, temperature float32, httpClient *http.Client) (*Ollama, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &Ollama{
		client:      api.NewClient(base, httpClient),
		model:       model,
		temperature: temperature,
	}, nil
}

func (o *Ollama) request(prompt string, stream bool) *api.GenerateRequest {
	return &api.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": o.temperature},
	}
}

type ollamaPart struct {
	text string
}

// GenerateStream implements Generator. The callback-based client runs in a
// background goroutine and hands each response over a channel.
func (o *Ollama) GenerateStream(ctx context.Context, prompt string) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	parts := make(chan ollamaPart)
	s := &ollamaStream{parts: parts, cancel: cancel}

	go func() {
		defer close(parts)
		done := false
		err := o.client.Generate(ctx, o.request(prompt, true), func(resp api.GenerateResponse) error {
			done = done || resp.Done
			select {
			case parts <- ollamaPart{text: resp.Response}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		// Read by Next only after parts is closed.
		s.err = finishErr(ctx, err, done)
	}()

	return s, nil
}

// finishErr decides how a generate call ended. The client stops reading
// silently when the body is cut off, so a response without its final
// done record is treated as a failure. An ended ctx is reported as such,
// whatever the transport made of it.
func finishErr(ctx context.Context, err error, done bool) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !done {
		return ctxErr
	}
	if err != nil {
		return err
	}
	if !done {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var sb strings.Builder
	done := false
	err := o.client.Generate(ctx, o.request(prompt, false), func(resp api.GenerateResponse) error {
		done = done || resp.Done
		sb.WriteString(resp.Response)
		return nil
	})
	if err := finishErr(ctx, err, done); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type ollamaStream struct {
	parts  <-chan ollamaPart
	cancel context.CancelFunc
	err    error // final outcome, set before parts is closed
}

// Next returns io.EOF only when the model reported completion.
func (s *ollamaStream) Next() (string, error) {
	p, ok := <-s.parts
	if !ok {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	return p.text, nil
}

func (s *ollamaStream) Close() error {
	s.cancel()
	return nil
}
