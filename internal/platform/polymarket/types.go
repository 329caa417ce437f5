package polymarket

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma API. The list
// fields (outcomes, prices, token ids) arrive as JSON-encoded strings.
type APIMarket struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	Slug            string   `json:"slug"`
	Active          flexBool `json:"active"`
	Closed          flexBool `json:"closed"`
	AcceptingOrders flexBool `json:"acceptingOrders"`
	Outcomes        string   `json:"outcomes"`      // e.g. "[\"Up\",\"Down\"]"
	OutcomePrices   string   `json:"outcomePrices"` // e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs    string   `json:"clobTokenIds"`  // e.g. "[\"123\",\"456\"]"
	EndDate         string   `json:"endDate"`
	EndDateISO      string   `json:"end_date_iso"`
}

// decodeStringList parses a JSON-encoded string array field.
func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// endTime parses whichever end-date field the API populated.
func (m *APIMarket) endTime() (time.Time, bool) {
	for _, raw := range []string{m.EndDate, m.EndDateISO} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToDescriptor converts the raw market into a typed descriptor. Markets
// missing required fields (two outcome tokens, an end time) return ok=false
// and are treated as not tradable.
func (m *APIMarket) ToDescriptor() (domain.MarketDescriptor, bool) {
	tokens := decodeStringList(m.ClobTokenIDs)
	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		return domain.MarketDescriptor{}, false
	}
	end, ok := m.endTime()
	if !ok {
		return domain.MarketDescriptor{}, false
	}
	if m.Slug == "" {
		return domain.MarketDescriptor{}, false
	}

	d := domain.MarketDescriptor{
		Slug:          m.Slug,
		Question:      m.Question,
		UpTokenID:     tokens[0],
		DownTokenID:   tokens[1],
		EndTime:       end,
		Closed:        bool(m.Closed),
		AcceptingOrds: bool(m.AcceptingOrders),
	}
	if prices := decodeStringList(m.OutcomePrices); len(prices) == 2 {
		d.UpPrice, _ = strconv.ParseFloat(prices[0], 64)
		d.DownPrice, _ = strconv.ParseFloat(prices[1], 64)
	}
	return d, true
}

// referencePriceRe extracts the dollar strike embedded in window questions,
// e.g. "Bitcoin Up or Down - will BTC beat $97,123.45 ...".
var referencePriceRe = regexp.MustCompile(`\$([0-9,]+\.?[0-9]*)`)

// ParseReferencePrice pulls the strike price out of a market question.
// Returns 0 when the question carries no dollar amount.
func ParseReferencePrice(question string) float64 {
	m := referencePriceRe.FindStringSubmatch(question)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIPriceLevel is a single bid/ask level in the CLOB book response.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook is the CLOB order-book response for one token.
type APIBook struct {
	AssetID string          `json:"asset_id"`
	Bids    []APIPriceLevel `json:"bids"`
	Asks    []APIPriceLevel `json:"asks"`
}

// ToSnapshot converts the raw book into a domain snapshot with both sides
// sorted best-first, whatever order the API delivered them in.
func (b *APIBook) ToSnapshot() domain.BookSnapshot {
	snap := domain.BookSnapshot{TokenID: b.AssetID}
	for _, lvl := range b.Bids {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.BookLevel{Price: p, Size: s})
	}
	for _, lvl := range b.Asks {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.BookLevel{Price: p, Size: s})
	}
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })
	return snap
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg,omitempty"`
	OrderID      string `json:"orderID,omitempty"`
	Status       string `json:"status,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"`
	TakingAmount string `json:"takingAmount,omitempty"`
}
