package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spikebot/internal/crypto"
	"github.com/alanyoungcy/spikebot/internal/domain"
)

// ClobClient is the REST client for the venue's CLOB (Central Limit Order
// Book) API. It reads order books and places orders. In dry-run mode order
// placement is stubbed to a synthetic fill that leaves the book untouched.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth
	dryRun     bool
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// auth may be nil only in dry-run mode.
func NewClobClient(baseURL string, auth *crypto.HMACAuth, dryRun bool, timeout time.Duration) *ClobClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		dryRun:     dryRun,
	}
}

// DryRun reports whether the client stubs order placement.
func (c *ClobClient) DryRun() bool { return c.dryRun }

// GetBook returns the order book for one outcome token, both sides sorted
// best-first.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doRequest(ctx, http.MethodGet, "/book?"+params.Encode(), nil)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	snap := book.ToSnapshot()
	if snap.TokenID == "" {
		snap.TokenID = tokenID
	}
	return snap, nil
}

// PlaceOrder submits an order and returns the venue's confirmation. Market
// orders are expressed as aggressively-priced limit orders, which is how the
// venue's matching engine treats them.
func (c *ClobClient) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	if req.TokenID == "" || req.Size <= 0 {
		return domain.OrderAck{}, fmt.Errorf("polymarket/clob: %w", domain.ErrInvalidOrder)
	}

	if c.dryRun {
		return domain.OrderAck{
			OrderID:    "DRY-" + uuid.NewString(),
			FilledSize: req.Size,
			AvgPrice:   req.Price,
			DryRun:     true,
		}, nil
	}

	price := req.Price
	if req.Type == domain.OrderMarket {
		// Cross the book decisively; the engine fills at the best available.
		if req.Side == domain.OrderBuy {
			price = 0.99
		} else {
			price = 0.01
		}
	}

	payload := map[string]any{
		"order": map[string]any{
			"tokenID": req.TokenID,
			"side":    string(req.Side),
			"price":   strconv.FormatFloat(price, 'f', 3, 64),
			"size":    strconv.FormatFloat(req.Size, 'f', 2, 64),
		},
		"orderType": "FOK",
	}
	if req.Type == domain.OrderLimit {
		payload["orderType"] = "GTC"
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/order", payload)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.OrderAck{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	if !result.Success {
		return domain.OrderAck{}, fmt.Errorf("polymarket/clob: order rejected: %s", result.ErrorMsg)
	}

	ack := domain.OrderAck{OrderID: result.OrderID, FilledSize: req.Size, AvgPrice: price}
	if making, err := strconv.ParseFloat(result.MakingAmount, 64); err == nil && making > 0 {
		if taking, err := strconv.ParseFloat(result.TakingAmount, 64); err == nil && taking > 0 {
			if req.Side == domain.OrderBuy {
				ack.FilledSize = taking
				ack.AvgPrice = making / taking
			} else {
				ack.FilledSize = making
				ack.AvgPrice = taking / making
			}
		}
	}
	return ack, nil
}

// CancelOrder cancels a single resting order by its ID.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun {
		return nil
	}
	body := map[string]any{"orderID": orderID}
	respBody, err := c.doRequest(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel failed: %s", result.ErrorMsg)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, signs (HMAC), sends, and reads an HTTP request against
// the CLOB API. It returns the raw response body.
func (c *ClobClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.auth != nil {
		for k, v := range c.auth.Headers(method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
