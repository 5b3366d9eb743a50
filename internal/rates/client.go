// Package rates fetches the TON/USD exchange rate for the admin panel.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a CoinGecko simple-price HTTP client
type Client struct {
	baseURL     string
	fallbackUSD float64
	httpClient  *http.Client
}

// NewClient creates a new rates client. fallbackUSD is returned whenever the
// live lookup fails; a stats report never fails on a rate error.
func NewClient(baseURL string, fallbackUSD float64) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		fallbackUSD: fallbackUSD,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type simplePriceResponse struct {
	TheOpenNetwork struct {
		USD float64 `json:"usd"`
	} `json:"the-open-network"`
}

// TonUSD returns the current TON price in USD, falling back to the configured
// approximate rate on any error. The second return value reports whether the
// rate is live.
func (c *Client) TonUSD(ctx context.Context) (float64, bool) {
	price, err := c.fetch(ctx)
	if err != nil || price <= 0 {
		return c.fallbackUSD, false
	}
	return price, true
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	url := c.baseURL + "/simple/price?ids=the-open-network&vs_currencies=usd"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("API error %d: %s", resp.StatusCode, string(data))
	}

	var parsed simplePriceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("unmarshal: %w", err)
	}

	return parsed.TheOpenNetwork.USD, nil
}
