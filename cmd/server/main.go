package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/saif7218/zk-marketwatch/internal/adapter/httpserver"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/saif7218/zk-marketwatch/internal/adapter/postgres"
	"github.com/saif7218/zk-marketwatch/internal/adapter/redis"
	"github.com/saif7218/zk-marketwatch/internal/adapter/websocket"
	"github.com/saif7218/zk-marketwatch/internal/app"
	"github.com/saif7218/zk-marketwatch/internal/broadcast"
	"github.com/saif7218/zk-marketwatch/internal/history"
	"github.com/saif7218/zk-marketwatch/internal/platform/config"
	"github.com/saif7218/zk-marketwatch/internal/platform/logging"
	"github.com/saif7218/zk-marketwatch/internal/platform/retry"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func logRetry(dependency string) func(int, error, time.Duration) {
	return func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not reachable, retrying", "dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
}

func setupDB(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.StoreMetrics) *pgxpool.Pool {
	policy := retry.StartupPolicy(clock, logRetry("postgres"))
	pool, err := retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (*pgxpool.Pool, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return postgres.Connect(attemptCtx, cfg.DatabaseURL, postgres.NewMetricsTracer(m))
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.StoreMetrics) *goredis.Client {
	policy := retry.StartupPolicy(clock, logRetry("redis"))
	client, err := retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (*goredis.Client, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return redis.NewClient(attemptCtx, cfg.RedisURL, redis.NewMetricsHook(m))
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	registry := broadcast.NewRegistry(clock, broadcast.Options{
		MaxConnections: cfg.MaxWebSocketConnections,
		SendBuffer:     cfg.WebSocketSendBuffer,
		Metrics:        metrics.NewBroadcastMetrics(reg),
	})

	storeMetrics := metrics.NewStoreMetrics(reg)
	var healthChecks []httpserver.HealthCheck

	// History is optional; without a store the endpoint answers 503.
	var historyReader app.HistoryReader
	if cfg.DatabaseURL != "" {
		pool := setupDB(ctx, cfg, clock, storeMetrics)
		defer pool.Close()

		historyReader = history.NewService(postgres.NewPriceHistoryRepo(pool), clock, history.Options{
			Window:  cfg.HistoryWindow,
			Metrics: metrics.NewHistoryMetrics(reg),
		})
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	} else {
		slog.Warn("DATABASE_URL not set, price history disabled")
	}

	appSvc := app.NewService(registry, historyReader)

	var wg sync.WaitGroup
	if cfg.RedisURL != "" {
		redisClient := setupRedis(ctx, cfg, clock, storeMetrics)
		defer func() { _ = redisClient.Close() }()

		subscriber := redis.NewSubscriber(redisClient, appSvc, metrics.NewEventSourceMetrics(reg))
		wg.Add(1)
		go func() {
			defer wg.Done()
			policy := retry.StartupPolicy(clock, logRetry("event source"))
			_, err := retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, subscriber.Start(ctx)
			})
			if err != nil {
				slog.Error("Event source stopped", "error", err)
			}
		}()
		healthChecks = append(healthChecks,
			httpserver.HealthCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			},
			httpserver.HealthCheck{Name: "event_source", Check: subscriber.CheckSubscribed},
		)
	} else {
		slog.Warn("REDIS_URL not set, accepting events over HTTP only")
	}

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		App:              appSvc,
		Connections:      registry,
		WebSocketHandler: websocket.NewHandler(registry, websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment())),
		MetricsRegistry:  reg,
		HTTPMetrics:      metrics.NewHTTPMetrics(reg),
		HealthChecks:     healthChecks,
		Clock:            clock,
	})

	go func() {
		<-ctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	// Server is down: stop ingesting, then close every dashboard connection.
	stop()
	wg.Wait()
	registry.Stop()
	slog.Info("Shutdown complete")
}
