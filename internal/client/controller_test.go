package client

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport hands out attempts that the test opens, fails or closes on command.
type fakeTransport struct {
	started chan *fakeAttempt
	count   atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{started: make(chan *fakeAttempt, 32)}
}

func (f *fakeTransport) Start(events Events) Conn {
	f.count.Add(1)
	a := &fakeAttempt{events: events}
	f.started <- a
	return a
}

type fakeAttempt struct {
	events Events
	closed atomic.Bool
}

func (a *fakeAttempt) Close() error {
	a.closed.Store(true)
	return nil
}

func (a *fakeAttempt) open()            { a.events.Opened() }
func (a *fakeAttempt) send(data string) { a.events.Message([]byte(data)) }
func (a *fakeAttempt) close()           { a.events.Closed() }

func (a *fakeAttempt) fail() {
	a.events.Error(errors.New("connection refused"))
	a.events.Closed()
}

// recorder captures controller callbacks.
type recorder struct {
	mu       sync.Mutex
	opens    int
	closes   int
	errs     []error
	messages []domain.Envelope
}

func (r *recorder) options() Options {
	return Options{
		OnOpen: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opens++
		},
		OnClose: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closes++
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnMessage: func(env domain.Envelope) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, env)
		},
	}
}

func (r *recorder) snapshot() (opens, closes, errs, messages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens, r.closes, len(r.errs), len(r.messages)
}

func newTestController(t *testing.T) (*Controller, *fakeTransport, *clockwork.FakeClock, *recorder) {
	t.Helper()
	transport := newFakeTransport()
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	c := NewController(transport, clock, rec.options())
	t.Cleanup(c.Stop)
	return c, transport, clock, rec
}

func nextAttempt(t *testing.T, f *fakeTransport) *fakeAttempt {
	t.Helper()
	select {
	case a := <-f.started:
		return a
	case <-time.After(time.Second):
		t.Fatal("expected a connection attempt")
		return nil
	}
}

func assertNoAttempt(t *testing.T, f *fakeTransport) {
	t.Helper()
	select {
	case <-f.started:
		t.Fatal("unexpected connection attempt")
	case <-time.After(50 * time.Millisecond):
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, time.Second, time.Millisecond,
		"expected state %s, got %s", want, c.State())
}

func TestController_StartsIdle(t *testing.T) {
	c, transport, _, _ := newTestController(t)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, c.Attempts())
	assertNoAttempt(t, transport)
}

func TestController_ConnectOpens(t *testing.T) {
	c, transport, _, rec := newTestController(t)

	require.NoError(t, c.Connect())
	assert.Equal(t, StateConnecting, c.State())

	nextAttempt(t, transport).open()
	waitForState(t, c, StateOpen)

	opens, _, _, _ := rec.snapshot()
	assert.Equal(t, 1, opens)
}

func TestController_ReconnectsAfterFixedDelay(t *testing.T) {
	c, transport, clock, rec := newTestController(t)

	require.NoError(t, c.Connect())
	first := nextAttempt(t, transport)
	first.open()
	waitForState(t, c, StateOpen)

	first.close()
	waitForState(t, c, StateReconnecting)
	_, closes, _, _ := rec.snapshot()
	assert.Equal(t, 1, closes)

	clock.Advance(DefaultReconnectDelay - time.Millisecond)
	assertNoAttempt(t, transport)

	clock.Advance(time.Millisecond)
	second := nextAttempt(t, transport)
	waitForState(t, c, StateConnecting)
	assert.Equal(t, 1, c.Attempts())

	second.open()
	waitForState(t, c, StateOpen)
	assert.Equal(t, 0, c.Attempts(), "a successful open resets the attempt counter")
}

func TestController_ExhaustsAfterMaxAttempts(t *testing.T) {
	c, transport, clock, rec := newTestController(t)

	require.NoError(t, c.Connect())

	// The initial attempt plus DefaultMaxReconnectAttempts retries all fail.
	for i := 0; i <= DefaultMaxReconnectAttempts; i++ {
		nextAttempt(t, transport).fail()
		if i == DefaultMaxReconnectAttempts {
			break
		}
		waitForState(t, c, StateReconnecting)
		assert.Equal(t, i, c.Attempts())
		clock.Advance(DefaultReconnectDelay)
	}

	waitForState(t, c, StateExhausted)
	assert.Equal(t, DefaultMaxReconnectAttempts, c.Attempts())
	assert.Equal(t, int32(DefaultMaxReconnectAttempts+1), transport.count.Load())

	_, closes, errs, _ := rec.snapshot()
	assert.Equal(t, DefaultMaxReconnectAttempts+1, closes)
	assert.Equal(t, DefaultMaxReconnectAttempts+1, errs)

	clock.Advance(time.Hour)
	assertNoAttempt(t, transport)
	assert.Equal(t, StateExhausted, c.State())

	// An explicit Connect resumes with a fresh counter.
	require.NoError(t, c.Connect())
	assert.Equal(t, 0, c.Attempts())
	assert.Equal(t, StateConnecting, c.State())
	nextAttempt(t, transport).open()
	waitForState(t, c, StateOpen)
}

func TestController_DisconnectCancelsPendingRetry(t *testing.T) {
	c, transport, clock, rec := newTestController(t)

	require.NoError(t, c.Connect())
	nextAttempt(t, transport).fail()
	waitForState(t, c, StateReconnecting)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, c.Attempts())

	clock.Advance(DefaultReconnectDelay * 2)
	assertNoAttempt(t, transport)
	assert.Equal(t, StateIdle, c.State())

	_, closes, _, _ := rec.snapshot()
	assert.Equal(t, 1, closes)
}

func TestController_DisconnectClosesOpenConnectionSilently(t *testing.T) {
	c, transport, clock, rec := newTestController(t)

	require.NoError(t, c.Connect())
	a := nextAttempt(t, transport)
	a.open()
	waitForState(t, c, StateOpen)

	require.NoError(t, c.Disconnect())
	assert.True(t, a.closed.Load())

	// The transport's close event for a dropped attempt is ignored.
	a.close()
	clock.Advance(DefaultReconnectDelay)
	assertNoAttempt(t, transport)
	assert.Equal(t, StateIdle, c.State())

	_, closes, _, _ := rec.snapshot()
	assert.Equal(t, 0, closes)
}

func TestController_DisconnectIsSafeFromAnyState(t *testing.T) {
	c, transport, _, _ := newTestController(t)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Connect())
	nextAttempt(t, transport)
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
	assert.Equal(t, StateIdle, c.State())
}

func TestController_ConnectWhileOpenReplacesConnection(t *testing.T) {
	c, transport, _, rec := newTestController(t)

	require.NoError(t, c.Connect())
	old := nextAttempt(t, transport)
	old.open()
	waitForState(t, c, StateOpen)

	require.NoError(t, c.Connect())
	assert.True(t, old.closed.Load())
	fresh := nextAttempt(t, transport)
	assert.Equal(t, StateConnecting, c.State())

	// Late events from the replaced connection change nothing.
	old.send(`{"type":"PRICE_UPDATE","payload":{},"timestamp":"2024-01-01T00:00:00.000Z"}`)
	old.close()

	fresh.open()
	waitForState(t, c, StateOpen)

	opens, closes, _, messages := rec.snapshot()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 0, closes)
	assert.Equal(t, 0, messages)
}

func TestController_MalformedMessageIsReportedAndDropped(t *testing.T) {
	c, transport, _, rec := newTestController(t)

	require.NoError(t, c.Connect())
	a := nextAttempt(t, transport)
	a.open()
	waitForState(t, c, StateOpen)

	a.send(`{not json`)
	a.send(`{"type":"PRICE_UPDATE","payload":{"productId":"p1"},"timestamp":"2024-01-01T00:00:00.000Z"}`)

	require.Eventually(t, func() bool {
		_, _, errs, messages := rec.snapshot()
		return errs == 1 && messages == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateOpen, c.State())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, domain.MessagePriceUpdate, rec.messages[0].Type)
	assert.JSONEq(t, `{"productId":"p1"}`, string(rec.messages[0].Payload))
	assert.Contains(t, rec.errs[0].Error(), "decode message")
}

func TestController_ErrorDoesNotTransition(t *testing.T) {
	c, transport, _, rec := newTestController(t)

	require.NoError(t, c.Connect())
	a := nextAttempt(t, transport)
	a.open()
	waitForState(t, c, StateOpen)

	a.events.Error(errors.New("protocol hiccup"))
	require.Eventually(t, func() bool {
		_, _, errs, _ := rec.snapshot()
		return errs == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateOpen, c.State())
}

func TestController_CustomLimits(t *testing.T) {
	transport := newFakeTransport()
	clock := clockwork.NewFakeClock()
	c := NewController(transport, clock, Options{MaxReconnectAttempts: 1, ReconnectDelay: time.Second})
	t.Cleanup(c.Stop)

	require.NoError(t, c.Connect())
	nextAttempt(t, transport).fail()
	waitForState(t, c, StateReconnecting)

	clock.Advance(time.Second)
	nextAttempt(t, transport).fail()
	waitForState(t, c, StateExhausted)
	assert.Equal(t, 1, c.Attempts())
}

func TestController_StopIsTerminal(t *testing.T) {
	transport := newFakeTransport()
	c := NewController(transport, clockwork.NewFakeClock(), Options{})

	require.NoError(t, c.Connect())
	a := nextAttempt(t, transport)

	c.Stop()

	assert.Equal(t, StateClosed, c.State())
	assert.True(t, a.closed.Load())
	assert.ErrorIs(t, c.Connect(), domain.ErrControllerStopped)
	assert.ErrorIs(t, c.Disconnect(), domain.ErrControllerStopped)

	// Transport callbacks after Stop must not block.
	a.fail()
	c.Stop()
}
