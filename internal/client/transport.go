package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Events receives the outcome of one connection attempt. Transports call it from
// their own goroutines, never from inside Start. Closed is reported exactly once
// per attempt, after any Error.
type Events interface {
	Opened()
	Message(data []byte)
	Error(err error)
	Closed()
}

// Conn is the handle of one connection attempt.
type Conn interface {
	Close() error
}

// Transport starts connection attempts without blocking the caller.
type Transport interface {
	Start(events Events) Conn
}

const (
	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	controlDeadline  = time.Second
)

// WebSocketTransport dials the server's WebSocket endpoint with gorilla/websocket.
type WebSocketTransport struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{
		URL:    url,
		Header: http.Header{"Accept": []string{"application/json"}},
		Dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (t *WebSocketTransport) Start(events Events) Conn {
	ctx, cancel := context.WithCancel(context.Background())
	conn := &wsConn{cancel: cancel}
	go conn.run(ctx, t, events)
	return conn
}

type wsConn struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (w *wsConn) run(ctx context.Context, t *WebSocketTransport, events Events) {
	defer events.Closed()

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		if !w.isClosed() {
			events.Error(fmt.Errorf("dial %s: %w", t.URL, err))
		}
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		_ = conn.Close()
		return
	}
	w.conn = conn
	w.mu.Unlock()

	// The server pings periodically; each ping extends the read deadline.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(controlDeadline))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	events.Opened()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !w.isClosed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				events.Error(fmt.Errorf("read: %w", err))
			}
			return
		}
		events.Message(data)
	}
}

func (w *wsConn) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close cancels a dial in progress or closes the established connection.
func (w *wsConn) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	conn := w.conn
	w.mu.Unlock()

	w.cancel()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(controlDeadline),
	)
	return conn.Close()
}
