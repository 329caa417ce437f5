package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// discoveryLimit bounds one discovery page; the rolling windows of interest
// always fit well inside it.
const discoveryLimit = 50

// GammaClient is the REST client for the venue's Gamma API, which provides
// market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &GammaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListWindows queries the venue for open markets tagged with the configured
// asset and filters down to the rolling windows whose question matches the
// asset and duration. Markets missing required fields are silently dropped.
func (g *GammaClient) ListWindows(ctx context.Context, assetTag, durationTag string) ([]domain.MarketDescriptor, error) {
	params := url.Values{}
	params.Set("closed", "false")
	params.Set("limit", fmt.Sprintf("%d", discoveryLimit))
	params.Set("order", "startDate")
	params.Set("ascending", "false")
	params.Set("tag", "crypto")

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list windows: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	var out []domain.MarketDescriptor
	for i := range apiMarkets {
		m := &apiMarkets[i]
		if !matchesWindow(m.Question, assetTag, durationTag) {
			continue
		}
		d, ok := m.ToDescriptor()
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// GetMarketBySlug returns a single market looked up by its URL slug. Used for
// resolution polling.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.MarketDescriptor, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket/gamma: %w: slug=%s", domain.ErrNotFound, slug)
	}

	d, ok := apiMarkets[0].ToDescriptor()
	if !ok {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket/gamma: %w: slug=%s missing required fields", domain.ErrNotFound, slug)
	}
	return d, nil
}

// matchesWindow reports whether a market question names the rolling window
// product for the given asset and duration, e.g. "Bitcoin Up or Down - 5 min".
func matchesWindow(question, assetTag, durationTag string) bool {
	q := strings.ToLower(question)
	if !strings.Contains(q, strings.ToLower(assetTag)) &&
		!strings.Contains(q, assetName(assetTag)) {
		return false
	}
	return strings.Contains(q, durationPhrase(durationTag))
}

// assetName maps a short asset tag to the spelled-out name the venue uses in
// question titles.
func assetName(tag string) string {
	switch strings.ToLower(tag) {
	case "btc":
		return "bitcoin"
	case "eth":
		return "ethereum"
	case "sol":
		return "solana"
	default:
		return strings.ToLower(tag)
	}
}

// durationPhrase maps a duration tag like "5m" to the phrase used in
// question titles ("5 min").
func durationPhrase(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if strings.HasSuffix(t, "m") {
		return strings.TrimSuffix(t, "m") + " min"
	}
	return t
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
