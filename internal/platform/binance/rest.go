package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RestClient fetches spot prices over the exchange REST API. Used once at
// startup to seed the feed before the stream delivers its first trade.
type RestClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRestClient creates a REST client for the given API root, e.g.
// "https://api.binance.com".
func NewRestClient(baseURL string) *RestClient {
	return &RestClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// TickerPrice returns the current spot price for a symbol.
func (r *RestClient) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/api/v3/ticker/price?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("binance: create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("binance: ticker request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("binance: read ticker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("binance: ticker HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("binance: decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("binance: bad ticker price %q", ticker.Price)
	}
	return price, nil
}
