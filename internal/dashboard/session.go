// Package dashboard composes the client-side pieces into one live view of a product:
// a connection controller, the message filter and a series reconciler seeded from history.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/client"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/saif7218/zk-marketwatch/internal/series"
)

const DefaultMaxAlerts = 50

type Options struct {
	ProductID   string
	Preferences domain.PreferencesProvider
	// History seeds the series before connecting. Nil starts empty.
	History HistorySource
	// MaxAlerts bounds the recent-alert list; older alerts are dropped first.
	MaxAlerts int
	// Controller is passed through to the connection controller. OnMessage and
	// OnError are wrapped, not replaced.
	Controller client.Options
}

// Session is the live state of one dashboard for one product.
type Session struct {
	productID  string
	prefs      domain.PreferencesProvider
	history    HistorySource
	maxAlerts  int
	controller *client.Controller

	mu         sync.Mutex
	reconciler *series.Reconciler
	alerts     []domain.AlertEvent
	lastErr    error
}

func NewSession(transport client.Transport, clock clockwork.Clock, opts Options) *Session {
	if opts.Preferences == nil {
		opts.Preferences = domain.StaticPreferences{}
	}
	if opts.MaxAlerts <= 0 {
		opts.MaxAlerts = DefaultMaxAlerts
	}

	s := &Session{
		productID:  opts.ProductID,
		prefs:      opts.Preferences,
		history:    opts.History,
		maxAlerts:  opts.MaxAlerts,
		reconciler: series.NewReconciler(opts.ProductID),
	}

	copts := opts.Controller
	onMessage, onError := copts.OnMessage, copts.OnError
	copts.OnMessage = func(env domain.Envelope) {
		s.handle(env)
		if onMessage != nil {
			onMessage(env)
		}
	}
	copts.OnError = func(err error) {
		s.setErr(err)
		if onError != nil {
			onError(err)
		}
	}
	s.controller = client.NewController(transport, clock, copts)
	return s
}

// Start seeds the series from history and then connects. A failed seed is
// logged and kept in Err; the live stream is started regardless.
func (s *Session) Start(ctx context.Context) error {
	if s.history != nil {
		if err := s.seed(ctx); err != nil {
			slog.Warn("Seeding price history failed", "product_id", s.productID, "error", err)
			s.setErr(err)
		}
	}
	if err := s.controller.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (s *Session) seed(ctx context.Context) error {
	events, err := s.history.Fetch(ctx, s.productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := 0
	for _, ev := range events {
		if ev.Source == "" {
			ev.Source = domain.SourceHistory
		}
		if err := s.reconciler.Apply(ev); err != nil {
			skipped++
			slog.Debug("Skipping history entry", "competitor_id", ev.CompetitorID, "error", err)
		}
	}
	slog.Info("Seeded price history", "product_id", s.productID, "events", len(events)-skipped, "skipped", skipped)
	return nil
}

func (s *Session) handle(env domain.Envelope) {
	if !client.Allow(env, s.prefs.Preferences()) {
		return
	}

	switch env.Type {
	case domain.MessagePriceUpdate:
		var ev domain.PriceEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			s.setErr(fmt.Errorf("decode price update: %w", err))
			return
		}
		// The stream carries every product; other products are not ours to keep.
		if ev.ProductID != s.productID {
			return
		}
		if ev.Source == "" {
			ev.Source = domain.SourceRealTime
		}

		s.mu.Lock()
		err := s.reconciler.Apply(ev)
		s.mu.Unlock()
		if err != nil {
			s.setErr(err)
			slog.Warn("Dropping price update", "competitor_id", ev.CompetitorID, "error", err)
		}

	case domain.MessageAlertTriggered:
		var alert domain.AlertEvent
		if err := json.Unmarshal(env.Payload, &alert); err != nil {
			s.setErr(fmt.Errorf("decode alert: %w", err))
			return
		}

		s.mu.Lock()
		s.alerts = append(s.alerts, alert)
		if over := len(s.alerts) - s.maxAlerts; over > 0 {
			s.alerts = slices.Delete(s.alerts, 0, over)
		}
		s.mu.Unlock()
	}
}

// View returns the per-competitor summaries with muted competitors removed.
func (s *Session) View() []domain.Summary {
	prefs := s.prefs.Preferences()

	s.mu.Lock()
	all := s.reconciler.All()
	s.mu.Unlock()

	return slices.DeleteFunc(all, func(sum domain.Summary) bool {
		return prefs.IsMuted(sum.CompetitorID)
	})
}

// Alerts returns the most recent alerts, oldest first.
func (s *Session) Alerts() []domain.AlertEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

func (s *Session) State() client.State {
	return s.controller.State()
}

// Err is the most recent seed, decode or connection error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Reconnect resumes the stream after the controller gave up.
func (s *Session) Reconnect() error {
	return s.controller.Connect()
}

// Close stops the controller. The session cannot be restarted.
func (s *Session) Close() {
	s.controller.Stop()
}

func (s *Session) setErr(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
