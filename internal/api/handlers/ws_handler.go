package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ats-platform/ats-backend/internal/events"
	"github.com/ats-platform/ats-backend/internal/utils"
)

// WSHandler streams status-change events to recruiter dashboards so an
// open board reflects transitions made by other reviewers.
type WSHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *events.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) Events(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "WSHandler.Events", "failed to upgrade connection", err))
		return
	}

	wc := &wsConn{c: conn}
	sub := h.hub.Subscribe()

	// reader: discard client frames, detect disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			if err := wc.writeText(msg); err != nil {
				return
			}
		}
	}
}
