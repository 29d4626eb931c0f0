// Package websocket upgrades dashboard HTTP requests to WebSocket connections and
// hands them to the connection registry.
package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/saif7218/zk-marketwatch/internal/broadcast"
)

const (
	// pongWait must exceed the registry's ping period.
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

// Registry is the subset of *broadcast.Registry the handler needs.
type Registry interface {
	Register(conn broadcast.Conn) error
	Unregister(conn broadcast.Conn)
}

// Handler serves the /ws endpoint. Clients only receive; anything they send is
// read and discarded so that close frames and pongs are processed.
type Handler struct {
	upgrader websocket.Upgrader
	registry Registry
}

func NewHandler(registry Registry, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		registry: registry,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		slog.Debug("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	if err := h.registry.Register(conn); err != nil {
		slog.Warn("Failed to register connection", "remote_addr", r.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}
	defer h.registry.Unregister(conn)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Read pump: blocks until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read failed", "remote_addr", r.RemoteAddr, "error", err)
			}
			return
		}
	}
}
