package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pandeptwidyaop/release-radar/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StreamHandler pushes registry events to clients over SSE or websocket.
// Both streams start with a snapshot of every application.
type StreamHandler struct {
	session *services.Session
	logger  *slog.Logger
}

// NewStreamHandler creates a new StreamHandler instance.
func NewStreamHandler(session *services.Session, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{session: session, logger: logger}
}

// Events streams events as text/event-stream.
func (h *StreamHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	id, ch := h.session.Events.Subscribe()
	defer h.session.Events.Unsubscribe(id)

	snapshot, err := json.Marshal(h.session.Registry.List())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_, _ = fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", snapshot)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				return true
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WebSocket streams the same events as JSON websocket messages.
func (h *StreamHandler) WebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = ws.Close() }()

	id, ch := h.session.Events.Subscribe()
	defer h.session.Events.Unsubscribe(id)

	// Reads only serve to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	write := func(msg wsMessage) error {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return ws.WriteJSON(msg)
	}

	if err := write(wsMessage{Type: "snapshot", Data: h.session.Registry.List()}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := write(wsMessage{Type: string(event.Type), Data: event}); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
