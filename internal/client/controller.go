package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second

	eventBufferSize = 64
)

// Options configures a Controller. Callbacks run on the controller goroutine;
// they may read State and Attempts but must not call Connect, Disconnect or Stop
// synchronously.
type Options struct {
	MaxReconnectAttempts int
	// ReconnectDelay is the fixed wait between a close and the next attempt.
	ReconnectDelay time.Duration
	// Jitter adds a random extra delay in [0, Jitter) to each retry. Zero keeps the delay fixed.
	Jitter time.Duration

	OnOpen    func()
	OnClose   func()
	OnError   func(err error)
	OnMessage func(env domain.Envelope)
}

// controllerEvent is the input interface of the Controller state machine.
type controllerEvent interface{ isControllerEvent() }

type baseEvent struct{}

func (baseEvent) isControllerEvent() {}

type connectEvent struct {
	baseEvent
	reply chan struct{}
}

type disconnectEvent struct {
	baseEvent
	reply chan struct{}
}

type stopEvent struct {
	baseEvent
}

type retryEvent struct {
	baseEvent
	token uint64
}

type openedEvent struct {
	baseEvent
	gen uint64
}

type messageEvent struct {
	baseEvent
	gen  uint64
	data []byte
}

type errorEvent struct {
	baseEvent
	gen uint64
	err error
}

type closedEvent struct {
	baseEvent
	gen uint64
}

// Controller owns one logical connection to the price stream and reconnects it
// with a fixed delay until MaxReconnectAttempts consecutive attempts have failed.
type Controller struct {
	transport Transport
	clock     clockwork.Clock
	opts      Options
	events    chan controllerEvent
	done      chan struct{}

	state    atomic.Int32
	attempts atomic.Int32

	// Owned by the run goroutine.
	conn       Conn
	gen        uint64
	retryTimer clockwork.Timer
	retryToken uint64
}

func NewController(transport Transport, clock clockwork.Clock, opts Options) *Controller {
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}

	c := &Controller{
		transport: transport,
		clock:     clock,
		opts:      opts,
		events:    make(chan controllerEvent, eventBufferSize),
		done:      make(chan struct{}),
	}
	c.state.Store(int32(StateIdle))
	go c.run()
	return c
}

// Connect (re)opens the connection and resets the attempt counter. An open
// connection is closed first. It is also the only way out of StateExhausted.
func (c *Controller) Connect() error {
	reply := make(chan struct{})
	return c.request(connectEvent{reply: reply}, reply)
}

// Disconnect cancels any pending retry, closes the connection and returns to
// StateIdle. No retry fires after Disconnect returns.
func (c *Controller) Disconnect() error {
	reply := make(chan struct{})
	return c.request(disconnectEvent{reply: reply}, reply)
}

// Stop disconnects and ends the controller goroutine. The final state is StateClosed.
func (c *Controller) Stop() {
	if c.post(stopEvent{}) {
		<-c.done
	}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Attempts is the number of reconnect attempts since the last successful open.
func (c *Controller) Attempts() int {
	return int(c.attempts.Load())
}

func (c *Controller) request(ev controllerEvent, reply chan struct{}) error {
	if !c.post(ev) {
		return domain.ErrControllerStopped
	}
	select {
	case <-reply:
		return nil
	case <-c.done:
		return domain.ErrControllerStopped
	}
}

func (c *Controller) post(ev controllerEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) run() {
	defer close(c.done)

	for ev := range c.events {
		if !c.handle(ev) {
			return
		}
	}
}

// handle is the single transition function. It returns false once the controller stops.
func (c *Controller) handle(ev controllerEvent) bool {
	switch e := ev.(type) {
	case connectEvent:
		c.cancelRetry()
		c.attempts.Store(0)
		c.open()
		close(e.reply)

	case disconnectEvent:
		c.teardown()
		c.setState(StateIdle)
		close(e.reply)

	case stopEvent:
		c.teardown()
		c.setState(StateClosed)
		return false

	case retryEvent:
		if e.token != c.retryToken || c.State() != StateReconnecting {
			return true
		}
		c.retryTimer = nil
		attempt := c.attempts.Add(1)
		slog.Info("Reconnecting", "attempt", attempt, "max_attempts", c.opts.MaxReconnectAttempts)
		c.open()

	case openedEvent:
		if e.gen != c.gen {
			return true
		}
		c.attempts.Store(0)
		c.setState(StateOpen)
		if c.opts.OnOpen != nil {
			c.opts.OnOpen()
		}

	case messageEvent:
		if e.gen != c.gen {
			return true
		}
		c.deliver(e.data)

	case errorEvent:
		if e.gen != c.gen {
			return true
		}
		c.reportError(e.err)

	case closedEvent:
		if e.gen != c.gen || c.conn == nil {
			return true
		}
		c.conn = nil
		c.handleClosed()

	default:
		slog.Warn("Controller received unknown event type", "event_type", fmt.Sprintf("%T", ev))
	}
	return true
}

func (c *Controller) handleClosed() {
	attempts := c.Attempts()
	if attempts < c.opts.MaxReconnectAttempts {
		// Schedule before publishing the state so observers of StateReconnecting
		// can rely on the timer being armed.
		c.scheduleRetry()
		c.setState(StateReconnecting)
	} else {
		c.setState(StateExhausted)
		slog.Warn("Reconnect attempts exhausted", "attempts", attempts)
	}

	if c.opts.OnClose != nil {
		c.opts.OnClose()
	}
}

// open starts a new transport attempt, superseding any current one.
func (c *Controller) open() {
	c.closeConn()
	c.gen++
	c.setState(StateConnecting)
	c.conn = c.transport.Start(attemptEvents{controller: c, gen: c.gen})
}

// teardown cancels retries and drops the connection without reporting a close.
func (c *Controller) teardown() {
	c.cancelRetry()
	c.closeConn()
	c.gen++
	c.attempts.Store(0)
}

func (c *Controller) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		slog.Debug("Closing connection failed", "error", err)
	}
	c.conn = nil
}

func (c *Controller) scheduleRetry() {
	c.cancelRetry()
	token := c.retryToken

	delay := c.opts.ReconnectDelay
	if c.opts.Jitter > 0 {
		delay += rand.N(c.opts.Jitter)
	}
	c.retryTimer = c.clock.AfterFunc(delay, func() {
		c.post(retryEvent{token: token})
	})
}

// cancelRetry stops the pending timer and invalidates a retry that already fired.
func (c *Controller) cancelRetry() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.retryToken++
}

func (c *Controller) deliver(data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.reportError(fmt.Errorf("decode message: %w", err))
		return
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(env)
	}
}

func (c *Controller) reportError(err error) {
	slog.Debug("Connection error", "state", c.State().String(), "error", err)
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		slog.Debug("Connection state changed", "from", prev.String(), "to", s.String())
	}
}

// attemptEvents tags transport callbacks with the attempt they belong to.
type attemptEvents struct {
	controller *Controller
	gen        uint64
}

func (a attemptEvents) Opened() {
	a.controller.post(openedEvent{gen: a.gen})
}

func (a attemptEvents) Message(data []byte) {
	a.controller.post(messageEvent{gen: a.gen, data: data})
}

func (a attemptEvents) Error(err error) {
	a.controller.post(errorEvent{gen: a.gen, err: err})
}

func (a attemptEvents) Closed() {
	a.controller.post(closedEvent{gen: a.gen})
}
