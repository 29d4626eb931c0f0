package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config is the server configuration.
type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	AppURL      string `env:"APP_URL" default:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	WebSocketSendBuffer     int `env:"WS_SEND_BUFFER" default:"256"`

	IngressRatePerSecond float64 `env:"INGRESS_RATE_PER_SECOND" default:"50"`
	IngressBurst         int     `env:"INGRESS_BURST" default:"100"`

	HistoryWindow time.Duration `env:"HISTORY_WINDOW" default:"720h"` // 30 days
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
}

func validate(cfg *Config) error {
	if cfg.MaxWebSocketConnections < 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must not be negative")
	}
	if cfg.WebSocketSendBuffer < 1 {
		return errors.New("WS_SEND_BUFFER must be at least 1")
	}
	if cfg.IngressRatePerSecond <= 0 {
		return errors.New("INGRESS_RATE_PER_SECOND must be positive")
	}
	if cfg.IngressBurst < 1 {
		return errors.New("INGRESS_BURST must be at least 1")
	}
	if cfg.HistoryWindow <= 0 {
		return errors.New("HISTORY_WINDOW must be positive")
	}
	if err := validateURL("APP_URL", cfg.AppURL, "http", "https"); err != nil {
		return err
	}
	if cfg.RedisURL != "" {
		if err := validateURL("REDIS_URL", cfg.RedisURL, "redis", "rediss"); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s must be a valid URL: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL with a host", name, strings.Join(schemes, " or "))
}
