package domain

import (
	"context"
	"time"
)

const DefaultCurrency = "BDT"

const (
	SourceHistory  = "history"
	SourceRealTime = "real-time"
)

// PriceEvent is one observed competitor price for a product.
type PriceEvent struct {
	ProductID    string  `json:"productId"`
	CompetitorID string  `json:"competitorId"`
	Price        float64 `json:"price"`
	Timestamp    string  `json:"timestamp"`
	Currency     string  `json:"currency"`
	Source       string  `json:"source,omitempty"`
}

// PriceKey identifies a price observation. Two events with equal keys are the same observation.
type PriceKey struct {
	ProductID    string
	CompetitorID string
	Timestamp    string
}

func (e PriceEvent) Key() PriceKey {
	return PriceKey{ProductID: e.ProductID, CompetitorID: e.CompetitorID, Timestamp: e.Timestamp}
}

// Summary is the derived per-competitor view used for charting.
type Summary struct {
	CompetitorID   string       `json:"competitorId"`
	Data           []PriceEvent `json:"data"`
	LatestPrice    float64      `json:"latestPrice"`
	PriceChangePct float64      `json:"priceChangePct"`
}

// HistoryPage is the response shape of the price-history endpoint.
type HistoryPage struct {
	Data     []PriceEvent    `json:"data"`
	Metadata HistoryMetadata `json:"metadata"`
}

type HistoryMetadata struct {
	Total       int    `json:"total"`
	LastUpdated string `json:"lastUpdated"`
}

// PriceHistoryRepository reads persisted observations from the external store.
type PriceHistoryRepository interface {
	ListByProduct(ctx context.Context, productID string, since time.Time) ([]PriceEvent, error)
}
