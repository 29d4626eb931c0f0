package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

// HistoryReader serves persisted observations of one product.
type HistoryReader interface {
	Page(ctx context.Context, productID string) (domain.HistoryPage, error)
}

// Service is the application layer. It is the only component that references both the
// broadcaster and the history store.
type Service struct {
	broadcaster domain.Broadcaster
	history     HistoryReader
	newID       func() string
}

// NewService creates the application layer service.
// history may be nil when no external store is configured.
func NewService(broadcaster domain.Broadcaster, history HistoryReader) *Service {
	return &Service{
		broadcaster: broadcaster,
		history:     history,
		newID:       uuid.NewString,
	}
}

// PublishPrice validates ev and broadcasts it as PRICE_UPDATE.
func (s *Service) PublishPrice(ev domain.PriceEvent) (domain.PriceEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.PriceEvent{}, err
	}
	if ev.Currency == "" {
		ev.Currency = domain.DefaultCurrency
	}
	if err := s.broadcaster.Broadcast(domain.MessagePriceUpdate, ev); err != nil {
		return domain.PriceEvent{}, fmt.Errorf("broadcast price update: %w", err)
	}

	slog.Debug("Price update broadcast", "product_id", ev.ProductID, "competitor_id", ev.CompetitorID)
	return ev, nil
}

// PublishAlert validates alert, assigns an ID when missing and broadcasts it as ALERT_TRIGGERED.
func (s *Service) PublishAlert(alert domain.AlertEvent) (domain.AlertEvent, error) {
	if err := alert.Validate(); err != nil {
		return domain.AlertEvent{}, err
	}
	if alert.ID == "" {
		alert.ID = s.newID()
	}
	if alert.Language == "" {
		alert.Language = domain.LanguageEnglish
	}
	if alert.Severity == "" {
		alert.Severity = domain.SeverityInfo
	}
	if err := s.broadcaster.Broadcast(domain.MessageAlertTriggered, alert); err != nil {
		return domain.AlertEvent{}, fmt.Errorf("broadcast alert: %w", err)
	}

	slog.Debug("Alert broadcast", "alert_id", alert.ID, "product_id", alert.ProductID, "severity", string(alert.Severity))
	return alert, nil
}

// History returns the product's stored observations.
func (s *Service) History(ctx context.Context, productID string) (domain.HistoryPage, error) {
	if s.history == nil {
		return domain.HistoryPage{}, fmt.Errorf("no history store configured: %w", domain.ErrHistoryUnavailable)
	}
	return s.history.Page(ctx, productID)
}
