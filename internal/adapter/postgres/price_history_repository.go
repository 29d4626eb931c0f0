package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

const listByProductSQL = `
SELECT product_id, competitor_id, price::float8 AS price, currency, observed_at
FROM price_observations
WHERE product_id = $1 AND observed_at >= $2
ORDER BY observed_at ASC, competitor_id ASC`

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PriceHistoryRepo struct {
	db Querier
}

func NewPriceHistoryRepo(db Querier) *PriceHistoryRepo {
	return &PriceHistoryRepo{db: db}
}

type priceRow struct {
	ProductID    string    `db:"product_id"`
	CompetitorID string    `db:"competitor_id"`
	Price        float64   `db:"price"`
	Currency     *string   `db:"currency"`
	ObservedAt   time.Time `db:"observed_at"`
}

func toDomainPrice(row priceRow) domain.PriceEvent {
	currency := domain.DefaultCurrency
	if row.Currency != nil && *row.Currency != "" {
		currency = *row.Currency
	}
	return domain.PriceEvent{
		ProductID:    row.ProductID,
		CompetitorID: row.CompetitorID,
		Price:        row.Price,
		Timestamp:    domain.FormatTimestamp(row.ObservedAt),
		Currency:     currency,
		Source:       domain.SourceHistory,
	}
}

func (r *PriceHistoryRepo) ListByProduct(ctx context.Context, productID string, since time.Time) ([]domain.PriceEvent, error) {
	rows, err := r.db.Query(ctx, listByProductSQL, productID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[priceRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan price history: %w", err)
	}

	events := make([]domain.PriceEvent, len(records))
	for i, row := range records {
		events[i] = toDomainPrice(row)
	}
	return events, nil
}
