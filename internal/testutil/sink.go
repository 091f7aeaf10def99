package testutil

import (
	"errors"
	"sync"

	"github.com/pdf-qa/backend/internal/models"
)

// ErrSinkGone is returned by RecordingSink.Send once FailAfter chunks were
// accepted.
var ErrSinkGone = errors.New("client went away")

// RecordingSink captures chunks sent to a client.
type RecordingSink struct {
	// FailAfter, when positive, makes Send fail after that many chunks.
	FailAfter int

	mu     sync.Mutex
	chunks []models.Chunk
	closed int
}

func (s *RecordingSink) Send(c models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAfter > 0 && len(s.chunks) >= s.FailAfter {
		return ErrSinkGone
	}
	s.chunks = append(s.chunks, c)
	return nil
}

func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Chunks returns the captured chunks in order.
func (s *RecordingSink) Chunks() []models.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Chunk(nil), s.chunks...)
}

// Texts returns the text of every captured chunk.
func (s *RecordingSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Text
	}
	return out
}

// Closed returns how many times Close was called.
func (s *RecordingSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
