// Package httpserver exposes the distribution core over HTTP: the WebSocket
// upgrade, event ingress, history reads and the operational endpoints.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/saif7218/zk-marketwatch/internal/platform/config"
)

type appService interface {
	PublishPrice(ev domain.PriceEvent) (domain.PriceEvent, error)
	PublishAlert(alert domain.AlertEvent) (domain.AlertEvent, error)
	History(ctx context.Context, productID string) (domain.HistoryPage, error)
}

type connectionCounter interface {
	Count() int
}

// Deps are the collaborators the server routes to.
type Deps struct {
	App              appService
	Connections      connectionCounter
	WebSocketHandler http.Handler
	MetricsRegistry  *prometheus.Registry
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
	Clock            clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app              appService
	connections      connectionCounter
	websocketHandler http.Handler
	metricsRegistry  *prometheus.Registry
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              deps.App,
		connections:      deps.Connections,
		websocketHandler: deps.WebSocketHandler,
		metricsRegistry:  deps.MetricsRegistry,
		httpMetrics:      deps.HTTPMetrics,
		healthChecks:     deps.HealthChecks,
		clock:            clock,
		startTime:        clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
