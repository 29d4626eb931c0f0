package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/saif7218/zk-marketwatch/internal/client"
	"github.com/saif7218/zk-marketwatch/internal/dashboard"
	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/saif7218/zk-marketwatch/internal/platform/config"
	"github.com/saif7218/zk-marketwatch/internal/platform/logging"
)

const (
	clearScreen    = "\033[H\033[2J"
	historyTimeout = 15 * time.Second
)

// watchStdin calls reconnect for every line typed while the controller has given up.
func watchStdin(ctx context.Context, session *dashboard.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if session.State() != client.StateExhausted {
			continue
		}
		if err := session.Reconnect(); err != nil {
			slog.Error("Reconnect failed", "error", err)
		}
	}
}

func draw(cfg *config.DashboardConfig, session *dashboard.Session) {
	var buf bytes.Buffer
	buf.WriteString(clearScreen)
	state := session.State()
	if err := dashboard.Render(&buf, cfg.ProductID, state, session.View(), session.Alerts()); err != nil {
		slog.Error("Render failed", "error", err)
		return
	}
	if err := session.Err(); err != nil {
		fmt.Fprintf(&buf, "\nlast error: %v\n", err)
	}
	if state == client.StateExhausted {
		buf.WriteString("\nconnection lost, press Enter to reconnect\n")
	}
	_, _ = os.Stdout.Write(buf.Bytes())
}

func main() {
	cfg, err := config.LoadDashboard()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, clockwork.NewRealClock())
	stop()
	if err != nil {
		slog.Error("Failed to start dashboard", "error", err)
		os.Exit(1)
	}
}

// run drives the dashboard until ctx is cancelled. The session is closed on
// every return path so main can exit without leaking the connection.
func run(ctx context.Context, cfg *config.DashboardConfig, clock clockwork.Clock) error {
	session := dashboard.NewSession(client.NewWebSocketTransport(cfg.WebSocketURL), clock, dashboard.Options{
		ProductID: cfg.ProductID,
		Preferences: domain.StaticPreferences{
			AlertsEnabled:    cfg.AlertsEnabled,
			MutedCompetitors: cfg.Muted(),
		},
		History: dashboard.NewHistoryClient(cfg.APIURL, nil),
		Controller: client.Options{
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
			ReconnectDelay:       cfg.ReconnectDelay,
			OnOpen:               func() { slog.Info("Connected", "url", cfg.WebSocketURL) },
			OnClose:              func() { slog.Info("Disconnected", "url", cfg.WebSocketURL) },
		},
	})
	defer session.Close()

	seedCtx, cancel := context.WithTimeout(ctx, historyTimeout)
	err := session.Start(seedCtx)
	cancel()
	if err != nil {
		return err
	}

	go watchStdin(ctx, session)

	ticker := clock.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	draw(cfg, session)
	for {
		select {
		case <-ticker.Chan():
			draw(cfg, session)
		case <-ctx.Done():
			return nil
		}
	}
}
