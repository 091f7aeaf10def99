package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pdf-qa/backend/internal/answer"
	"github.com/pdf-qa/backend/internal/models"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypeAsk  = "ask"
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeMessage   = "message"
	MsgTypeError     = "error"
	MsgTypeClose     = "close"
	MsgTypePong      = "pong"
)

// pendingMessages bounds the frames queued while an answer is streaming.
const pendingMessages = 16

// WSMessage is the single frame shape used in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	PDFID     string `json:"pdfId,omitempty"`
	Filename  string `json:"pdfFilename,omitempty"`
	Query     string `json:"query,omitempty"`
	Data      string `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WebSocketHandler streams answers over a WebSocket. Questions on one
// connection are answered one after another.
type WebSocketHandler struct {
	answers  Answerer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket answer handler
func NewWebSocketHandler(answers Answerer, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		answers: answers,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and serves ask/ping messages until
// the client goes away.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	wsh.logger.Debug("websocket client connected", "remote", c.RealIP())
	wsh.send(ws, WSMessage{Type: MsgTypeConnected})

	// The reader cancels ctx when the client disconnects so that an answer
	// in progress stops. Frames sent during an answer are queued so the
	// reader keeps reading.
	msgs := make(chan WSMessage, pendingMessages)
	go func() {
		defer cancel()
		defer close(msgs)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsh.logger.Warn("websocket read failed", "error", err)
				}
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range msgs {
		switch msg.Type {
		case MsgTypePing:
			wsh.send(ws, WSMessage{Type: MsgTypePong})
		case MsgTypeAsk:
			wsh.handleAsk(ctx, ws, msg)
		default:
			wsh.send(ws, WSMessage{Type: MsgTypeError, Data: "Unknown message type: " + msg.Type})
		}
	}

	wsh.logger.Debug("websocket client disconnected")
	return nil
}

func (wsh *WebSocketHandler) handleAsk(ctx context.Context, ws *websocket.Conn, msg WSMessage) {
	if strings.TrimSpace(msg.Query) == "" || msg.PDFID == "" {
		wsh.send(ws, WSMessage{Type: MsgTypeError, Data: "pdfId and query are required"})
		wsh.send(ws, WSMessage{Type: MsgTypeClose})
		return
	}

	res := wsh.answers.Run(ctx, answer.Request{
		DocumentID: msg.PDFID,
		Filename:   msg.Filename,
		Query:      msg.Query,
	}, &wsSink{ws: ws})

	wsh.logger.Info("websocket answer finished", "id", msg.PDFID, "chunks", res.Chunks, "failed", res.Failed)
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	if err := ws.WriteJSON(msg); err != nil {
		wsh.logger.Debug("failed to send websocket message", "error", err)
	}
}

// wsSink forwards answer chunks as WebSocket frames.
type wsSink struct {
	ws *websocket.Conn
}

func (s *wsSink) Send(chunk models.Chunk) error {
	msgType := MsgTypeMessage
	if chunk.Err {
		msgType = MsgTypeError
	}
	return s.ws.WriteJSON(WSMessage{Type: msgType, Data: chunk.Text, Timestamp: time.Now().UnixMilli()})
}

func (s *wsSink) Close() error {
	return s.ws.WriteJSON(WSMessage{Type: MsgTypeClose, Timestamp: time.Now().UnixMilli()})
}
