package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdf-qa/backend/internal/logging"
	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/testutil"
)

func TestLogger_Record(t *testing.T) {
	store := testutil.NewMemoryStore()
	l := NewLogger(store, logging.Discard())
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("X", 3600))
	l.now = func() time.Time { return fixed }

	ok := l.Record(context.Background(), "doc-id", "what?", "that.")
	require.True(t, ok)

	recs := store.Interactions()
	require.Len(t, recs, 1)
	rec := recs[0]
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.True(t, rec.Timestamp.Equal(fixed))
	assert.Equal(t, time.UTC, rec.Timestamp.Location())
	assert.Equal(t, "doc-id", rec.PDFReference)
	assert.Equal(t, "what?", rec.Query)
	assert.Equal(t, "that.", rec.Response)
}

func TestLogger_RecordUniqueIDs(t *testing.T) {
	store := testutil.NewMemoryStore()
	l := NewLogger(store, logging.Discard())

	for i := 0; i < 5; i++ {
		require.True(t, l.Record(context.Background(), "d", "q", "r"))
	}
	seen := map[string]bool{}
	for _, rec := range store.Interactions() {
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
	assert.Len(t, seen, 5)
}

func TestLogger_RecordFailureIsSwallowed(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.InsertInteractErr = &models.StorageError{Op: "insert interaction", Err: errors.New("locked")}
	l := NewLogger(store, logging.Discard())

	assert.False(t, l.Record(context.Background(), "d", "q", "r"))
	assert.Empty(t, store.Interactions())
}

func TestLogger_Recent(t *testing.T) {
	store := testutil.NewMemoryStore()
	l := NewLogger(store, logging.Discard())
	base := time.Now()
	for i, q := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		l.now = func() time.Time { return at }
		require.True(t, l.Record(context.Background(), "d", q, "r"))
	}

	recent, err := l.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Query)
	assert.Equal(t, "second", recent[1].Query)
}
