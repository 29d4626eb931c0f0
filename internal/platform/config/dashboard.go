package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-simpler.org/env"
)

// DashboardConfig configures the terminal dashboard client.
type DashboardConfig struct {
	WebSocketURL string `env:"DASHBOARD_WS_URL" default:"ws://localhost:8080/ws"`
	APIURL       string `env:"DASHBOARD_API_URL" default:"http://localhost:8080"`
	ProductID    string `env:"DASHBOARD_PRODUCT_ID"`
	LogLevel     string `env:"LOG_LEVEL" default:"warn"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`

	AlertsEnabled bool `env:"DASHBOARD_ALERTS_ENABLED" default:"true"`
	// MutedCompetitors is a comma-separated list of competitor IDs.
	MutedCompetitors string `env:"DASHBOARD_MUTED_COMPETITORS"`

	MaxReconnectAttempts int           `env:"DASHBOARD_MAX_RECONNECT_ATTEMPTS" default:"5"`
	ReconnectDelay       time.Duration `env:"DASHBOARD_RECONNECT_DELAY" default:"3s"`
	RefreshInterval      time.Duration `env:"DASHBOARD_REFRESH_INTERVAL" default:"2s"`
}

// Muted returns the muted competitor IDs with blanks removed.
func (c *DashboardConfig) Muted() []string {
	var out []string
	for _, id := range strings.Split(c.MutedCompetitors, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func LoadDashboard() (*DashboardConfig, error) {
	loadDotEnv()

	var cfg DashboardConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateDashboard(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateDashboard(cfg *DashboardConfig) error {
	if cfg.ProductID == "" {
		return errors.New("DASHBOARD_PRODUCT_ID is required")
	}
	if err := validateURL("DASHBOARD_WS_URL", cfg.WebSocketURL, "ws", "wss"); err != nil {
		return err
	}
	if err := validateURL("DASHBOARD_API_URL", cfg.APIURL, "http", "https"); err != nil {
		return err
	}
	if cfg.MaxReconnectAttempts < 1 {
		return errors.New("DASHBOARD_MAX_RECONNECT_ATTEMPTS must be at least 1")
	}
	if cfg.ReconnectDelay <= 0 {
		return errors.New("DASHBOARD_RECONNECT_DELAY must be positive")
	}
	if cfg.RefreshInterval <= 0 {
		return errors.New("DASHBOARD_REFRESH_INTERVAL must be positive")
	}
	return nil
}
