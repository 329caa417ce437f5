package domain

import "time"

// PositionMode is the exit-policy mode of an open position. A position holds
// exactly one mode; moonbag and protection are mutually exclusive one-way
// transitions out of normal.
type PositionMode string

const (
	ModeNormal     PositionMode = "normal"
	ModeMoonbag    PositionMode = "moonbag"
	ModeProtection PositionMode = "protection"
)

// PositionStatus tracks the lifecycle of a position.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "open"
	PositionClosing PositionStatus = "closing"
	PositionClosed  PositionStatus = "closed"
)

// Position is one open trade against a window. All fields are mutated only by
// the executor's serialized strategy/exit tasks.
type Position struct {
	ID      string     `json:"id"`
	Window  WindowRef  `json:"window"`
	Side    Side       `json:"side"`
	TokenID string     `json:"token_id"`
	Kind    SignalKind `json:"strategy"`

	EntryPrice float64 `json:"entry_price"` // per share, in [0,1]
	Shares     float64 `json:"shares"`
	Cost       float64 `json:"cost"` // EntryPrice * Shares

	OpenedAt    time.Time      `json:"opened_at"`
	PeakGainPct float64        `json:"peak_gain_pct"` // monotonically non-decreasing
	Mode        PositionMode   `json:"mode"`
	Status      PositionStatus `json:"status"`

	// SellStuck marks a position whose sell failed repeatedly; it falls
	// through to resolution.
	SellStuck bool `json:"sell_stuck,omitempty"`

	// ArbPairShares is non-zero only for both-sides arbitrage positions and
	// records the shares held on the opposite token.
	ArbPairShares float64 `json:"arb_pair_shares,omitempty"`
	ArbPairCost   float64 `json:"arb_pair_cost,omitempty"`
}

// GainPct converts a realisable sell price into percent gain over entry.
func (p *Position) GainPct(bestBid float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (bestBid - p.EntryPrice) / p.EntryPrice * 100
}
