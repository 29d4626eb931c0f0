// Command publish puts a single price or alert event on the Redis event-source
// channels. It is meant for local testing of the distribution server.
//
//	publish price -product p1 -competitor shop-a -price 1250
//	publish alert -product p1 -competitor shop-a -message "price drop" -severity warning
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/saif7218/zk-marketwatch/internal/adapter/redis"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

const publishTimeout = 5 * time.Second

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publish <price|alert> [flags]")
	os.Exit(2)
}

func redisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	url := fs.String("redis", redisURL(), "Redis URL")
	product := fs.String("product", "", "product ID")
	competitor := fs.String("competitor", "", "competitor ID")

	var publish func(ctx context.Context, p *redis.Publisher) error
	switch os.Args[1] {
	case "price":
		price := fs.Float64("price", 0, "observed price")
		currency := fs.String("currency", domain.DefaultCurrency, "ISO currency code")
		publish = func(ctx context.Context, p *redis.Publisher) error {
			ev := domain.PriceEvent{
				ProductID:    *product,
				CompetitorID: *competitor,
				Price:        *price,
				Currency:     *currency,
				Timestamp:    domain.FormatTimestamp(time.Now()),
			}
			if err := ev.Validate(); err != nil {
				return err
			}
			return p.PublishPrice(ctx, ev)
		}
	case "alert":
		message := fs.String("message", "", "alert text")
		severity := fs.String("severity", string(domain.SeverityInfo), "info, warning or error")
		language := fs.String("lang", string(domain.LanguageEnglish), "en or bn")
		publish = func(ctx context.Context, p *redis.Publisher) error {
			alert := domain.AlertEvent{
				ID:           uuid.NewString(),
				ProductID:    *product,
				CompetitorID: *competitor,
				Message:      *message,
				Severity:     domain.Severity(*severity),
				Language:     domain.Language(*language),
			}
			if err := alert.Validate(); err != nil {
				return err
			}
			return p.PublishAlert(ctx, alert)
		}
	default:
		usage()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, *url)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := publish(ctx, redis.NewPublisher(client)); err != nil {
		log.Fatalf("Failed to publish: %v", err)
	}
	fmt.Println("published")
}
