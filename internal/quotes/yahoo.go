// Package quotes fetches live prices from the Yahoo Finance chart API.
// Every call is a fresh upstream round trip: the gateway holds no
// cache and never retries.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidSymbol is returned before any network call when the
	// symbol is empty.
	ErrInvalidSymbol = errors.New("symbol is required")
	// ErrNoData means the provider responded but had no usable price.
	ErrNoData = errors.New("no data for symbol")
)

// Quote is a point-in-time price observation. ChangePercent is nil
// when the provider omits a previous close.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	ChangePercent *float64 `json:"change"`
}

// FormatSymbol qualifies a ticker for the NSE exchange by appending
// .NS unless it is already suffixed.
func FormatSymbol(symbol string) string {
	if strings.HasSuffix(symbol, ".NS") {
		return symbol
	}
	return symbol + ".NS"
}

type chartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// Client calls the Yahoo Finance chart endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client against the public Yahoo endpoint with a
// request timeout.
func NewClient() *Client {
	return &Client{
		BaseURL:    "https://query1.finance.yahoo.com",
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetQuote normalizes symbol to its exchange-qualified form and fetches
// the current quote. It returns ErrInvalidSymbol for an empty input and
// ErrNoData when the provider has no price; any other failure is an
// upstream error carrying the provider's message.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if symbol == "" {
		return Quote{}, ErrInvalidSymbol
	}
	formatted := FormatSymbol(symbol)

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.BaseURL, url.PathEscape(formatted))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("User-Agent", "curl/8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, formatted)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, formatted)
	}

	var yc chartResp
	if err := json.NewDecoder(resp.Body).Decode(&yc); err != nil {
		return Quote{}, fmt.Errorf("failed to parse yahoo response: %w", err)
	}
	if len(yc.Chart.Result) == 0 || yc.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, formatted)
	}

	meta := yc.Chart.Result[0].Meta
	q := Quote{Symbol: formatted, Price: meta.RegularMarketPrice}
	if meta.Symbol != "" {
		q.Symbol = meta.Symbol
	}
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	if prev > 0 {
		change := (meta.RegularMarketPrice - prev) / prev * 100
		q.ChangePercent = &change
	}
	return q, nil
}
