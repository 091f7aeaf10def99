package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/models"
)

// SSE event names.
const (
	EventMessage = "message"
	EventError   = "error"
	EventClose   = "close"
)

// sseSink writes answer chunks as Server-Sent Events.
type sseSink struct {
	res *echo.Response
}

// newSSESink sets SSE headers and commits the response.
func newSSESink(res *echo.Response) *sseSink {
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()
	return &sseSink{res: res}
}

func (s *sseSink) Send(chunk models.Chunk) error {
	event := EventMessage
	if chunk.Err {
		event = EventError
	}
	return s.writeEvent(event, chunk.Text)
}

// Close emits the terminal event so clients can tell end-of-answer apart
// from a dropped connection.
func (s *sseSink) Close() error {
	return s.writeEvent(EventClose, "")
}

func (s *sseSink) writeEvent(event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := s.res.Write([]byte(b.String())); err != nil {
		return err
	}
	s.res.Flush()
	return nil
}
