package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pdf-qa/backend/internal/llm"
)

// ScriptedGenerator implements llm.Generator by replaying Chunks.
type ScriptedGenerator struct {
	Chunks []string

	// StartErr fails GenerateStream and Generate before any output.
	StartErr error
	// MidErr is returned by Next after all Chunks were delivered.
	MidErr error
	// Block makes Next wait for context cancellation after the last chunk.
	Block bool

	mu      sync.Mutex
	prompts []string
	closed  int
}

var _ llm.Generator = (*ScriptedGenerator)(nil)

func (g *ScriptedGenerator) GenerateStream(ctx context.Context, prompt string) (llm.Stream, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.StartErr != nil {
		return nil, g.StartErr
	}
	return &scriptedStream{ctx: ctx, g: g}, nil
}

func (g *ScriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.StartErr != nil {
		return "", g.StartErr
	}
	if g.MidErr != nil {
		return "", g.MidErr
	}
	return strings.Join(g.Chunks, ""), nil
}

// Prompts returns every prompt received.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// StreamsClosed returns how many streams were closed.
func (g *ScriptedGenerator) StreamsClosed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

type scriptedStream struct {
	ctx context.Context
	g   *ScriptedGenerator
	pos int
}

func (s *scriptedStream) Next() (string, error) {
	if s.pos < len(s.g.Chunks) {
		s.pos++
		return s.g.Chunks[s.pos-1], nil
	}
	if s.g.MidErr != nil {
		return "", s.g.MidErr
	}
	if s.g.Block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.g.mu.Lock()
	s.g.closed++
	s.g.mu.Unlock()
	return nil
}
