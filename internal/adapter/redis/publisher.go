package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

// Publisher puts events on the event-source channels.
type Publisher struct {
	rdb goredis.UniversalClient
}

func NewPublisher(rdb goredis.UniversalClient) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) PublishPrice(ctx context.Context, ev domain.PriceEvent) error {
	return p.publish(ctx, PriceChannel, ev)
}

func (p *Publisher) PublishAlert(ctx context.Context, alert domain.AlertEvent) error {
	return p.publish(ctx, AlertChannel, alert)
}

func (p *Publisher) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}
