package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestLog struct {
	mu   sync.Mutex
	reqs []map[string]any
}

func (l *requestLog) all() []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]map[string]any(nil), l.reqs...)
}

func newOllamaServer(t *testing.T, words []string) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		log.mu.Lock()
		log.reqs = append(log.reqs, body)
		log.mu.Unlock()

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, word := range words {
			fmt.Fprintf(w, `{"model":"test","response":%q,"done":false}`+"\n", word)
			w.(http.Flusher).Flush()
		}
		fmt.Fprintln(w, `{"model":"test","response":"","done":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func collect(t *testing.T, s Stream) []string {
	t.Helper()
	var out []string
	for {
		text, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, text)
	}
}

func TestOllama_GenerateStream(t *testing.T) {
	srv, requests := newOllamaServer(t, []string{"Hel", "lo", " there"})
	o, err := NewOllama(srv.URL, "llama3", 0.5, srv.Client())
	require.NoError(t, err)

	stream, err := o.GenerateStream(context.Background(), "say hello")
	require.NoError(t, err)
	defer stream.Close()

	got := collect(t, stream)
	assert.Equal(t, []string{"Hel", "lo", " there", ""}, got)

	reqs := requests.all()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "llama3", req["model"])
	assert.Equal(t, "say hello", req["prompt"])
	assert.Equal(t, true, req["stream"])
}

func TestOllama_Generate(t *testing.T) {
	srv, requests := newOllamaServer(t, []string{"one ", "shot"})
	o, err := NewOllama(srv.URL, "llama3", 0, srv.Client())
	require.NoError(t, err)

	text, err := o.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "one shot", text)
	assert.Equal(t, false, requests.all()[0]["stream"])
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"missing\" not found"}`)
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "missing", 0, srv.Client())
	require.NoError(t, err)

	stream, err := o.GenerateStream(context.Background(), "p")
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOllama_CloseStopsBackgroundCall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"test","response":"first","done":false}`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	o, err := NewOllama(srv.URL, "m", 0, srv.Client())
	require.NoError(t, err)

	stream, err := o.GenerateStream(context.Background(), "p")
	require.NoError(t, err)

	text, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	require.NoError(t, stream.Close())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := stream.Next(); err != nil {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after Close")
	}
}

func TestNewOllama_InvalidHost(t *testing.T) {
	_, err := NewOllama("://bad", "m", 0, nil)
	assert.Error(t, err)
}

// newStallingServer writes one partial response and then holds the
// connection open until the client goes away.
func newStallingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"test","response":"Partial","done":false}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllama_DeadlineIsReportedNotEOF(t *testing.T) {
	srv := newStallingServer(t)
	o, err := NewOllama(srv.URL, "m", 0, srv.Client())
	require.NoError(t, err)

	// The goroutine handing results over races the deadline; repeat so both
	// orderings are exercised.
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		stream, err := o.GenerateStream(ctx, "p")
		require.NoError(t, err)

		text, err := stream.Next()
		require.NoError(t, err)
		assert.Equal(t, "Partial", text)

		_, err = stream.Next()
		require.Error(t, err, "iteration %d", i)
		assert.NotErrorIs(t, err, io.EOF, "iteration %d", i)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "iteration %d", i)

		stream.Close()
		cancel()
	}
}

func TestOllama_TruncatedResponseIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"test","response":"cut","done":false}`)
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "m", 0, srv.Client())
	require.NoError(t, err)

	stream, err := o.GenerateStream(context.Background(), "p")
	require.NoError(t, err)
	defer stream.Close()

	text, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "cut", text)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = o.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFinishErr(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	boom := errors.New("boom")

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		done bool
		want error
	}{
		{"completed", context.Background(), nil, true, nil},
		{"call error wins", context.Background(), boom, true, boom},
		{"cut off by context", cancelled, nil, false, context.Canceled},
		{"transport error after cancel", cancelled, boom, false, context.Canceled},
		{"cut off by server", context.Background(), nil, false, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finishErr(tt.ctx, tt.err, tt.done)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
