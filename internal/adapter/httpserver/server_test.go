package httpserver

import (
	"context"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/saif7218/zk-marketwatch/internal/platform/config"
)

type fakeApp struct {
	mu        sync.Mutex
	prices    []domain.PriceEvent
	alerts    []domain.AlertEvent
	publishFn func(domain.PriceEvent) (domain.PriceEvent, error)
	historyFn func(ctx context.Context, productID string) (domain.HistoryPage, error)
}

func (f *fakeApp) PublishPrice(ev domain.PriceEvent) (domain.PriceEvent, error) {
	if f.publishFn != nil {
		return f.publishFn(ev)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = append(f.prices, ev)
	return ev, nil
}

func (f *fakeApp) PublishAlert(alert domain.AlertEvent) (domain.AlertEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert.ID = "alert-1"
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeApp) History(ctx context.Context, productID string) (domain.HistoryPage, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx, productID)
	}
	return domain.HistoryPage{Data: []domain.PriceEvent{}}, nil
}

type fixedCount int

func (n fixedCount) Count() int { return int(n) }

type serverOption func(*Deps, *config.Config)

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(d *Deps, _ *config.Config) { d.HealthChecks = checks }
}

func withClock(clock clockwork.Clock) serverOption {
	return func(d *Deps, _ *config.Config) { d.Clock = clock }
}

func withConnections(n int) serverOption {
	return func(d *Deps, _ *config.Config) { d.Connections = fixedCount(n) }
}

func withIngressLimit(ratePerSecond float64, burst int) serverOption {
	return func(_ *Deps, cfg *config.Config) {
		cfg.IngressRatePerSecond = ratePerSecond
		cfg.IngressBurst = burst
	}
}

func withMetrics(reg *prometheus.Registry) serverOption {
	return func(d *Deps, _ *config.Config) {
		d.MetricsRegistry = reg
		d.HTTPMetrics = metrics.NewHTTPMetrics(reg)
	}
}

func newTestServer(t *testing.T, app appService, opts ...serverOption) *Server {
	t.Helper()
	cfg := &config.Config{
		AppEnv:               "test",
		Port:                 "0",
		IngressRatePerSecond: 100,
		IngressBurst:         100,
	}
	deps := Deps{App: app, Clock: clockwork.NewFakeClock()}
	for _, opt := range opts {
		opt(&deps, cfg)
	}
	return NewServer(cfg, deps)
}
