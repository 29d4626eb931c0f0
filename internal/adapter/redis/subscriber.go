package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

// EventSink receives decoded events. *app.Service implements it.
type EventSink interface {
	PublishPrice(ev domain.PriceEvent) (domain.PriceEvent, error)
	PublishAlert(alert domain.AlertEvent) (domain.AlertEvent, error)
}

var ErrNotSubscribed = errors.New("event source not subscribed")

// Subscriber forwards events from the Redis channels to an EventSink.
type Subscriber struct {
	rdb     goredis.UniversalClient
	sink    EventSink
	metrics *metrics.EventSourceMetrics
	active  atomic.Bool
}

// NewSubscriber creates a subscriber. m may be nil.
func NewSubscriber(rdb goredis.UniversalClient, sink EventSink, m *metrics.EventSourceMetrics) *Subscriber {
	return &Subscriber{rdb: rdb, sink: sink, metrics: m}
}

// Start listens on both channels and blocks until ctx is cancelled. go-redis
// reconnects a dropped subscription on its own.
func (s *Subscriber) Start(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, PriceChannel, AlertChannel)
	defer func() {
		_ = pubsub.Close()
		s.setActive(false)
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.setActive(true)
	slog.Info("Event source subscribed", "channels", []string{PriceChannel, AlertChannel})

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handleMessage(msg.Channel, msg.Payload)
		case <-ctx.Done():
			return nil
		}
	}
}

// handleMessage processes a single event-source message.
func (s *Subscriber) handleMessage(channel, payload string) {
	if err := s.dispatch(channel, []byte(payload)); err != nil {
		s.count(channel, "error")
		slog.Warn("Dropping event-source message", "channel", channel, "error", err)
		return
	}
	s.count(channel, "ok")
}

func (s *Subscriber) dispatch(channel string, payload []byte) error {
	switch channel {
	case PriceChannel:
		var ev domain.PriceEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
		}
		_, err := s.sink.PublishPrice(ev)
		return err
	case AlertChannel:
		var alert domain.AlertEvent
		if err := json.Unmarshal(payload, &alert); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
		}
		_, err := s.sink.PublishAlert(alert)
		return err
	default:
		return fmt.Errorf("unexpected channel %q", channel)
	}
}

func (s *Subscriber) count(channel, result string) {
	if s.metrics != nil {
		s.metrics.Received.WithLabelValues(channel, result).Inc()
	}
}

// CheckSubscribed is a readiness check: it fails until the subscription is
// confirmed and again once it has ended.
func (s *Subscriber) CheckSubscribed(context.Context) error {
	if !s.active.Load() {
		return ErrNotSubscribed
	}
	return nil
}

func (s *Subscriber) setActive(active bool) {
	s.active.Store(active)
	if s.metrics == nil {
		return
	}
	if active {
		s.metrics.SubscriptionActive.Set(1)
	} else {
		s.metrics.SubscriptionActive.Set(0)
	}
}
