package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saif7218/zk-marketwatch/internal/domain"
)

const historyPath = "/api/prices/history"

// HistorySource returns the persisted observations a session is seeded with.
type HistorySource interface {
	Fetch(ctx context.Context, productID string) ([]domain.PriceEvent, error)
}

// HistoryClient reads the server's price-history endpoint.
type HistoryClient struct {
	baseURL string
	http    *http.Client
}

func NewHistoryClient(baseURL string, httpClient *http.Client) *HistoryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HistoryClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *HistoryClient) Fetch(ctx context.Context, productID string) ([]domain.PriceEvent, error) {
	endpoint := c.baseURL + historyPath + "?" + url.Values{"product_id": {productID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w: %w", productID, domain.ErrHistoryUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history for %s: status %d: %w", productID, resp.StatusCode, domain.ErrHistoryUnavailable)
	}

	var page domain.HistoryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", productID, err)
	}
	return page.Data, nil
}
