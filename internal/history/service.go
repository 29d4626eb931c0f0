// Package history serves persisted price observations from the external store.
//
// Concurrent reads for the same product share one query, and a circuit breaker
// stops hammering the store while it is failing.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultWindow = 30 * 24 * time.Hour

	breakerMinRequests = 5
	breakerFailureRate = 0.6
	breakerInterval    = 10 * time.Second
	breakerOpenTimeout = 30 * time.Second

	// readTimeout bounds a shared query, which no longer follows any one caller's context.
	readTimeout = 10 * time.Second
)

type Options struct {
	// Window limits reads to observations newer than now-Window.
	Window  time.Duration
	Metrics *metrics.HistoryMetrics
}

type Service struct {
	repo    domain.PriceHistoryRepository
	clock   clockwork.Clock
	window  time.Duration
	metrics *metrics.HistoryMetrics
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
}

func NewService(repo domain.PriceHistoryRepository, clock clockwork.Clock, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	s := &Service{
		repo:    repo,
		clock:   clock,
		window:  opts.Window,
		metrics: opts.Metrics,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "price-history",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRate
		},
		// A cancelled request says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if s.metrics != nil {
				s.metrics.BreakerState.Set(stateToFloat(to))
			}
		},
	})
	return s
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Page returns the product's observations in ascending timestamp order, in the
// response shape of the history endpoint.
func (s *Service) Page(ctx context.Context, productID string) (domain.HistoryPage, error) {
	since := s.clock.Now().Add(-s.window)

	v, err, shared := s.group.Do(productID, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
		defer cancel()
		return s.breaker.Execute(func() (any, error) {
			return s.repo.ListByProduct(readCtx, productID, since)
		})
	})
	s.record(shared, err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.HistoryPage{}, fmt.Errorf("list history for %s: %w", productID, err)
		}
		return domain.HistoryPage{}, fmt.Errorf("list history for %s: %w: %w", productID, domain.ErrHistoryUnavailable, err)
	}

	// The slice may be shared with concurrent callers; copy before tagging.
	stored := v.([]domain.PriceEvent)
	events := make([]domain.PriceEvent, len(stored))
	for i, ev := range stored {
		if ev.Currency == "" {
			ev.Currency = domain.DefaultCurrency
		}
		ev.Source = domain.SourceHistory
		events[i] = ev
	}

	return domain.HistoryPage{
		Data: events,
		Metadata: domain.HistoryMetadata{
			Total:       len(events),
			LastUpdated: domain.FormatTimestamp(s.clock.Now()),
		},
	}, nil
}

func (s *Service) BreakerState() gobreaker.State {
	return s.breaker.State()
}

func (s *Service) record(shared bool, err error) {
	if s.metrics == nil {
		return
	}
	if shared {
		s.metrics.Shared.Inc()
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.Reads.WithLabelValues(result).Inc()
}
