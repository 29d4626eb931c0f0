package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	defaultSendBuffer = 16
)

// Conn is the transport handle of one dashboard client. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type clientWriter struct {
	id          uuid.UUID
	connection  Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	open        atomic.Bool
	onFailure   func(err error)
}

// newClientWriter starts the write goroutine. onFailure runs on that goroutine after
// the first failed write; the writer exits right after.
func newClientWriter(connection Conn, clock clockwork.Clock, bufferSize int, onFailure func(*clientWriter, error)) *clientWriter {
	if bufferSize <= 0 {
		bufferSize = defaultSendBuffer
	}
	cw := &clientWriter{
		id:          uuid.New(),
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, bufferSize),
		doneChannel: make(chan struct{}),
	}
	if onFailure != nil {
		cw.onFailure = func(err error) { onFailure(cw, err) }
	}
	cw.open.Store(true)
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg := <-cw.sendChannel:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.fail(err)
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				cw.fail(err)
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

func (cw *clientWriter) fail(err error) {
	cw.open.Store(false)
	if cw.onFailure != nil {
		cw.onFailure(err)
	}
}

// enqueue hands msg to the write goroutine without blocking.
// Returns false when the send buffer is full.
func (cw *clientWriter) enqueue(msg []byte) bool {
	select {
	case cw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) isOpen() bool {
	return cw.open.Load()
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		cw.open.Store(false)
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		cw.open.Store(false)
		close(cw.doneChannel)

		// The close frame must not race a pending write from run.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)

		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}
