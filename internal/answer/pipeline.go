// Package answer streams model answers about a cached document to a client
// and records completed interactions.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"github.com/pdf-qa/backend/internal/llm"
	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

// Messages sent to the client when an answer cannot be produced.
const (
	GenerationErrorPrefix = "Error during LLM generation: "
	MsgDocumentNotFound   = "Error: Could not find PDF text associated with this session."
	MsgRetrievalFailed    = "Error: PDF text retrieval failed."
)

// Sink receives the chunks of one answer. Close signals end of stream and is
// called exactly once per Run.
type Sink interface {
	Send(c models.Chunk) error
	Close() error
}

// DocumentSource resolves a document id to its cached text.
type DocumentSource interface {
	Lookup(ctx context.Context, id string) (*models.Document, error)
}

// Recorder persists a completed interaction and reports whether it did.
type Recorder interface {
	Record(ctx context.Context, reference, query, response string) bool
}

// Request identifies the document and question of one answer.
type Request struct {
	DocumentID string
	Filename   string // display only
	Query      string
}

// Result summarizes a finished answer.
type Result struct {
	Response string
	Failed   bool
	Chunks   int
	Recorded bool
}

// Pipeline produces answers. It is safe for concurrent use; all per-request
// state lives in a session.
type Pipeline struct {
	docs     DocumentSource
	gen      llm.Generator
	recorder Recorder
	logger   *slog.Logger

	delay   time.Duration
	timeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunkDelay sets the pause taken after forwarding each chunk. Zero
// yields the processor without sleeping.
func WithChunkDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.delay = d }
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// New creates a Pipeline.
func New(docs DocumentSource, gen llm.Generator, recorder Recorder, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{docs: docs, gen: gen, recorder: recorder, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chunks streams the answer for query over text. Empty model chunks are
// dropped. A model failure ends the sequence with one error chunk; a
// cancelled ctx ends it silently.
func (p *Pipeline) Chunks(ctx context.Context, query, text string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		stream, err := p.gen.GenerateStream(callCtx, BuildPrompt(query, text))
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("model stream failed to start", "error", err)
				yield(generationError(err))
			}
			return
		}
		defer stream.Close()

		for {
			chunk, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Error("model stream failed", "error", err)
				yield(generationError(err))
				return
			}
			if chunk == "" {
				p.logger.Warn("received empty chunk, skipping")
				continue
			}
			if !yield(models.Chunk{Text: chunk}) {
				return
			}
		}
	}
}

func generationError(err error) models.Chunk {
	return models.Chunk{Text: GenerationErrorPrefix + err.Error(), Err: true}
}

// Run streams the answer for req into sink and finalizes the session:
// a successful non-empty answer is recorded, then sink is closed. Both happen
// exactly once whatever way streaming ended.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) (res Result) {
	s := newSession(req)
	defer func() { res = p.finalize(ctx, s, sink) }()

	doc, err := p.docs.Lookup(ctx, req.DocumentID)
	if err != nil {
		msg := MsgRetrievalFailed
		if errors.Is(err, storage.ErrNotFound) {
			msg = MsgDocumentNotFound
		}
		p.logger.Error("document text lookup failed", "id", req.DocumentID, "filename", req.Filename, "error", err)
		s.failed = true
		if err := sink.Send(models.Chunk{Text: msg, Err: true}); err != nil {
			p.logger.Debug("client gone before error was sent", "error", err)
		}
		return
	}
	p.logger.Info("retrieved document text", "id", req.DocumentID, "filename", req.Filename)

	for chunk := range p.Chunks(ctx, req.Query, doc.Text) {
		if err := sink.Send(chunk); err != nil {
			p.logger.Info("client disconnected during answer", "id", req.DocumentID, "error", err)
			break
		}
		s.add(chunk)
		if !p.pause(ctx) {
			p.logger.Info("client disconnected during answer", "id", req.DocumentID)
			break
		}
	}
	return
}

func (p *Pipeline) finalize(ctx context.Context, s *session, sink Sink) Result {
	if s.state == StateClosed {
		return s.result()
	}
	s.state = StateFinalizing

	if s.shouldRecord() {
		// The request may already be cancelled; the record must still land.
		s.recorded = p.recorder.Record(context.WithoutCancel(ctx), s.req.DocumentID, s.req.Query, s.acc.String())
	}
	if err := sink.Close(); err != nil {
		p.logger.Debug("closing answer sink", "error", err)
	}

	s.state = StateClosed
	return s.result()
}

// pause yields to other sessions after a chunk. It reports false if ctx ended.
func (p *Pipeline) pause(ctx context.Context) bool {
	if p.delay <= 0 {
		runtime.Gosched()
		return ctx.Err() == nil
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Answer produces a complete answer in one call. A successful non-empty
// answer is recorded. Model failures are returned as
// *models.RemoteServiceError.
func (p *Pipeline) Answer(ctx context.Context, req Request) (Result, error) {
	doc, err := p.docs.Lookup(ctx, req.DocumentID)
	if err != nil {
		return Result{}, err
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	text, err := p.gen.Generate(callCtx, BuildPrompt(req.Query, doc.Text))
	if err != nil {
		p.logger.Error("model generation failed", "id", req.DocumentID, "error", err)
		return Result{Failed: true}, &models.RemoteServiceError{Err: fmt.Errorf("generate: %w", err)}
	}

	res := Result{Response: text}
	if text != "" {
		res.Chunks = 1
		res.Recorded = p.recorder.Record(context.WithoutCancel(ctx), req.DocumentID, req.Query, text)
	}
	return res, nil
}
