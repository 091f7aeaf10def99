package answer

import (
	"strings"

	"github.com/pdf-qa/backend/internal/models"
)

// State is the lifecycle position of one answer session.
type State int

const (
	StateStreaming State = iota
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// session holds the per-request state of one streamed answer. It is owned by
// a single goroutine.
type session struct {
	req      Request
	state    State
	acc      strings.Builder
	chunks   int
	failed   bool
	recorded bool
}

func newSession(req Request) *session {
	return &session{req: req, state: StateStreaming}
}

// add accounts for a chunk that reached the client.
func (s *session) add(c models.Chunk) {
	s.chunks++
	s.acc.WriteString(c.Text)
	if c.Err {
		s.failed = true
	}
}

// shouldRecord reports whether the session produced an answer worth keeping.
func (s *session) shouldRecord() bool {
	return s.acc.Len() > 0 && !s.failed
}

func (s *session) result() Result {
	return Result{
		Response: s.acc.String(),
		Failed:   s.failed,
		Chunks:   s.chunks,
		Recorded: s.recorded,
	}
}
