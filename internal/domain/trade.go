package domain

import "time"

// ExitStatus records which exit rule closed a trade.
type ExitStatus string

const (
	ExitTakeProfit   ExitStatus = "take_profit"
	ExitMoonbagTrail ExitStatus = "moonbag_trail"
	ExitProtection   ExitStatus = "protection"
	ExitHardStop     ExitStatus = "hard_stop"
	ExitResolvedWin  ExitStatus = "resolved_win"
	ExitResolvedLoss ExitStatus = "resolved_loss"
)

// IsWin reports whether the exit realizes a gain. Fees apply only to these.
func (s ExitStatus) IsWin() bool {
	switch s {
	case ExitTakeProfit, ExitMoonbagTrail, ExitResolvedWin:
		return true
	}
	return false
}

// ClosedTrade is the immutable record of a finished position.
type ClosedTrade struct {
	WindowSlug string     `json:"window_slug"`
	Side       Side       `json:"side"`
	Kind       SignalKind `json:"strategy"`
	Entry      float64    `json:"entry"`
	Exit       float64    `json:"exit"`
	Shares     float64    `json:"shares"`
	Cost       float64    `json:"cost"`
	PnL        float64    `json:"pnl"`
	PnLPct     float64    `json:"pnl_pct"`
	Status     ExitStatus `json:"status"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   time.Time  `json:"closed_at"`
}

// TradePnL computes realized P&L for a sell or resolution payout. Fees are
// charged on gross profit for winning exits and never on losses.
func TradePnL(shares, entry, exit, feeRate float64, status ExitStatus) float64 {
	gross := shares * (exit - entry)
	if status.IsWin() && gross > 0 {
		return gross * (1 - feeRate)
	}
	return gross
}

// CloseTrade builds the immutable record for a position exiting at the given
// per-share price (1.0 or 0.0 for resolutions).
func CloseTrade(p *Position, exit, feeRate float64, status ExitStatus, closedAt time.Time) ClosedTrade {
	pnl := TradePnL(p.Shares, p.EntryPrice, exit, feeRate, status)
	pct := 0.0
	if p.Cost > 0 {
		pct = pnl / p.Cost * 100
	}
	return ClosedTrade{
		WindowSlug: p.Window.Slug,
		Side:       p.Side,
		Kind:       p.Kind,
		Entry:      p.EntryPrice,
		Exit:       exit,
		Shares:     p.Shares,
		Cost:       p.Cost,
		PnL:        pnl,
		PnLPct:     pct,
		Status:     status,
		OpenedAt:   p.OpenedAt,
		ClosedAt:   closedAt,
	}
}
