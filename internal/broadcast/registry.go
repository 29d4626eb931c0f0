package broadcast

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

const (
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	commandBufferSize = 256
)

// registryCmd is the command interface for the Registry actor.
type registryCmd interface{ isRegistryCmd() }

type baseRegistryCmd struct{}

func (baseRegistryCmd) isRegistryCmd() {}

type registerCmd struct {
	baseRegistryCmd
	connection   Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseRegistryCmd
	connection Conn
}

type broadcastCmd struct {
	baseRegistryCmd
	msgType domain.MessageType
	data    []byte
}

type sendFailedCmd struct {
	baseRegistryCmd
	connection Conn
	writerID   string
	err        error
}

type countCmd struct {
	baseRegistryCmd
	replyChannel chan int
}

type stopCmd struct {
	baseRegistryCmd
}

// Options configures a Registry. Zero values select defaults.
type Options struct {
	// MaxConnections rejects registrations beyond this many connections (0 = unlimited).
	MaxConnections int
	// SendBuffer is the per-connection queue length before a client counts as slow.
	SendBuffer int
	Metrics    *metrics.BroadcastMetrics
}

// Registry tracks live dashboard connections and fans envelopes out to them.
// It is created once by the server's composition root and shared explicitly.
type Registry struct {
	cmdCh   chan registryCmd
	clock   clockwork.Clock
	clients map[Conn]*clientWriter
	opts    Options
	done    chan struct{}
}

func NewRegistry(clock clockwork.Clock, opts Options) *Registry {
	r := &Registry{
		cmdCh:   make(chan registryCmd, commandBufferSize),
		clock:   clock,
		clients: make(map[Conn]*clientWriter),
		opts:    opts,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Register adds a connection. Registering a connection twice is a no-op.
func (r *Registry) Register(conn Conn) error {
	errCh := make(chan error, 1)
	if err := r.send(registerCmd{connection: conn, errorChannel: errCh}); err != nil {
		return err
	}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-r.done:
		return domain.ErrRegistryStopped
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection and closes it. Unknown connections are ignored.
func (r *Registry) Unregister(conn Conn) {
	_ = r.send(unregisterCmd{connection: conn})
}

// Broadcast encodes the envelope once and queues it for every open connection.
// It does not wait for delivery.
func (r *Registry) Broadcast(msgType domain.MessageType, payload any) error {
	_, data := Encode(msgType, payload, r.clock.Now())
	return r.send(broadcastCmd{msgType: msgType, data: data})
}

// Count returns the number of registered connections, or -1 if the registry does not answer.
func (r *Registry) Count() int {
	replyCh := make(chan int, 1)
	if err := r.send(countCmd{replyChannel: replyCh}); err != nil {
		return 0
	}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-r.done:
		return 0
	case <-timer.Chan():
		slog.Warn("Count timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every connection with a close frame and ends the actor.
// Blocks until the actor has exited or the stop timeout is reached.
func (r *Registry) Stop() {
	if err := r.send(stopCmd{}); err != nil {
		return
	}

	timeout := r.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Connection registry stopped")
	case <-timeout.Chan():
		slog.Warn("Connection registry stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (r *Registry) send(cmd registryCmd) error {
	select {
	case <-r.done:
		return domain.ErrRegistryStopped
	default:
	}

	select {
	case r.cmdCh <- cmd:
		return nil
	case <-r.done:
		return domain.ErrRegistryStopped
	}
}

func (r *Registry) run() {
	defer close(r.done)
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Connection registry panic recovered", "panic", rec)
			r.closeAllClients("registry failure")
		}
	}()

	for cmd := range r.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			r.handleRegister(c)
		case unregisterCmd:
			r.handleUnregister(c.connection)
		case broadcastCmd:
			r.handleBroadcast(c)
		case sendFailedCmd:
			r.handleSendFailed(c)
		case countCmd:
			c.replyChannel <- len(r.clients)
		case stopCmd:
			r.handleStop()
			return
		default:
			slog.Warn("Connection registry received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (r *Registry) handleRegister(c registerCmd) {
	if _, exists := r.clients[c.connection]; exists {
		c.errorChannel <- nil
		return
	}

	if r.opts.MaxConnections > 0 && len(r.clients) >= r.opts.MaxConnections {
		slog.Warn("Rejecting client: max connections reached", "max_connections", r.opts.MaxConnections)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("max connections (%d) reached", r.opts.MaxConnections)
		return
	}

	cw := newClientWriter(c.connection, r.clock, r.opts.SendBuffer, r.reportSendFailure)
	r.clients[c.connection] = cw

	if m := r.opts.Metrics; m != nil {
		m.ConnectedClients.Set(float64(len(r.clients)))
	}

	slog.Debug("Client registered", "conn_id", cw.id.String(), "total_clients", len(r.clients))
	c.errorChannel <- nil
}

// reportSendFailure runs on a writer goroutine and forwards the failure to the actor.
func (r *Registry) reportSendFailure(cw *clientWriter, err error) {
	cmd := sendFailedCmd{connection: cw.connection, writerID: cw.id.String(), err: err}
	select {
	case r.cmdCh <- cmd:
	case <-cw.doneChannel:
	case <-r.done:
	}
}

func (r *Registry) handleSendFailed(c sendFailedCmd) {
	cw, exists := r.clients[c.connection]
	if !exists || cw.id.String() != c.writerID {
		return
	}

	slog.Warn("Send failed, dropping client", "conn_id", c.writerID, "error", c.err)
	if m := r.opts.Metrics; m != nil {
		m.SendFailures.Inc()
	}
	r.handleUnregister(c.connection)
}

func (r *Registry) handleUnregister(conn Conn) {
	cw, exists := r.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(r.clients, conn)

	if m := r.opts.Metrics; m != nil {
		m.ConnectedClients.Set(float64(len(r.clients)))
	}

	slog.Debug("Client unregistered", "conn_id", cw.id.String(), "remaining_clients", len(r.clients))
}

func (r *Registry) handleBroadcast(c broadcastCmd) {
	start := r.clock.Now()

	delivered := 0
	var slow []Conn
	for conn, writer := range r.clients {
		if !writer.isOpen() {
			continue
		}
		if writer.enqueue(c.data) {
			delivered++
			continue
		}
		slow = append(slow, conn)
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "conn_id", r.clients[conn].id.String())
		if m := r.opts.Metrics; m != nil {
			m.SlowClientsEvicted.Inc()
		}
		r.handleUnregister(conn)
	}

	if m := r.opts.Metrics; m != nil {
		m.MessagesBroadcast.WithLabelValues(string(c.msgType)).Inc()
		m.BroadcastDuration.Observe(r.clock.Since(start).Seconds())
	}

	slog.Debug("Envelope broadcast", "type", string(c.msgType), "delivered", delivered, "evicted", len(slow))
}

func (r *Registry) handleStop() {
	total := len(r.clients)
	slog.Info("Connection registry shutting down", "total_clients", total)

	r.closeAllClients("Server shutting down")

	slog.Info("Connection registry shutdown complete", "disconnected_clients", total)
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (r *Registry) closeAllClients(reason string) {
	for conn, cw := range r.clients {
		cw.stopGraceful(reason)
		delete(r.clients, conn)
	}
	if m := r.opts.Metrics; m != nil {
		m.ConnectedClients.Set(0)
	}
}
