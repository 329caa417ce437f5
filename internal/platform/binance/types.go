// Package binance provides thin clients for the exchange trade stream and
// REST ticker used to seed and drive the spot price feed.
package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// tradeMessage is one trade event frame from the exchange stream.
type tradeMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"` // epoch milliseconds
}

// ParseTrade decodes a raw stream frame into a tick. Non-trade frames (for
// example subscription acks) return ok=false without an error.
func ParseTrade(raw []byte) (domain.Tick, bool, error) {
	var msg tradeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Tick{}, false, fmt.Errorf("binance: decode frame: %w", err)
	}
	if msg.EventType != "trade" || msg.Price == "" {
		return domain.Tick{}, false, nil
	}
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || price <= 0 {
		return domain.Tick{}, false, fmt.Errorf("binance: bad trade price %q", msg.Price)
	}
	at := time.UnixMilli(msg.TradeTime)
	if msg.TradeTime <= 0 {
		at = time.Now()
	}
	return domain.Tick{Price: price, At: at}, true, nil
}

// tickerResponse is the REST ticker-price payload.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}
