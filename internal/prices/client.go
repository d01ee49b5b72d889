package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/shopspring/decimal"
)

const (
	changeSuffix = "_24h_change"
	apiKeyHeader = "x-cg-demo-api-key"
)

// Client talks to the CoinGecko simple/price endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch issues one batched request for ids in every supported currency.
func (c *Client) Fetch(ctx context.Context, ids []string) (Snapshot, error) {
	const op = "prices.Client.Fetch"

	currencies := make([]string, 0, len(coin.Currencies))
	for _, cur := range coin.Currencies {
		currencies = append(currencies, string(cur))
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", strings.Join(currencies, ","))
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", op, errs.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, errs.ErrFetchFailed, resp.Status)
	}

	var body map[string]map[string]decimal.NullDecimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w: decode: %w", op, errs.ErrFetchFailed, err)
	}

	return toSnapshot(body), nil
}

func toSnapshot(body map[string]map[string]decimal.NullDecimal) Snapshot {
	snap := make(Snapshot, len(body))
	for id, fields := range body {
		q := Quote{
			Prices:    make(map[coin.Currency]decimal.Decimal),
			Change24h: make(map[coin.Currency]decimal.Decimal),
		}
		for key, v := range fields {
			if !v.Valid {
				continue
			}
			if cur, ok := strings.CutSuffix(key, changeSuffix); ok {
				q.Change24h[coin.Currency(cur)] = v.Decimal
				continue
			}
			q.Prices[coin.Currency(key)] = v.Decimal
		}
		snap[id] = q
	}
	return snap
}
