package domain

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestTradePnL(t *testing.T) {
	tests := []struct {
		name   string
		shares float64
		entry  float64
		exit   float64
		status ExitStatus
		want   float64
	}{
		{"take profit pays fee on gross", 196, 0.51, 0.562, ExitTakeProfit, 196 * 0.052 * 0.98},
		{"moonbag trail pays fee", 200, 0.50, 0.55, ExitMoonbagTrail, 200 * 0.05 * 0.98},
		{"protection loss no fee", 181.81, 0.55, 0.4978, ExitProtection, 181.81 * (0.4978 - 0.55)},
		{"hard stop loss no fee", 100, 0.55, 0.40, ExitHardStop, 100 * -0.15},
		{"resolution win", 196, 0.51, 1.0, ExitResolvedWin, 196 * 0.49 * 0.98},
		{"resolution loss", 196, 0.51, 0.0, ExitResolvedLoss, 196 * -0.51},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TradePnL(tc.shares, tc.entry, tc.exit, 0.02, tc.status)
			if !almostEqual(got, tc.want) {
				t.Errorf("TradePnL() = %.6f, want %.6f", got, tc.want)
			}
		})
	}
}

// Winning statuses must map to positive P&L and losing ones to non-positive,
// whatever the raw numbers were.
func TestTradePnLSignMatchesStatus(t *testing.T) {
	winStatuses := []ExitStatus{ExitTakeProfit, ExitMoonbagTrail, ExitResolvedWin}
	lossStatuses := []ExitStatus{ExitProtection, ExitHardStop, ExitResolvedLoss}

	for _, s := range winStatuses {
		if !s.IsWin() {
			t.Errorf("%s: IsWin() = false, want true", s)
		}
		if pnl := TradePnL(100, 0.50, 0.60, 0.02, s); pnl <= 0 {
			t.Errorf("%s: pnl = %.4f, want > 0", s, pnl)
		}
	}
	for _, s := range lossStatuses {
		if s.IsWin() {
			t.Errorf("%s: IsWin() = true, want false", s)
		}
		if pnl := TradePnL(100, 0.50, 0.40, 0.02, s); pnl >= 0 {
			t.Errorf("%s: pnl = %.4f, want < 0", s, pnl)
		}
	}
}

func TestCloseTrade(t *testing.T) {
	opened := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	closed := opened.Add(90 * time.Second)
	p := &Position{
		ID:         "pos-1",
		Window:     WindowRef{Slug: "btc-updown-1405"},
		Side:       SideUp,
		Kind:       SignalSpike,
		EntryPrice: 0.51,
		Shares:     196,
		Cost:       99.96,
		OpenedAt:   opened,
	}

	ct := CloseTrade(p, 0.562, 0.02, ExitTakeProfit, closed)
	if ct.WindowSlug != "btc-updown-1405" || ct.Side != SideUp || ct.Status != ExitTakeProfit {
		t.Fatalf("CloseTrade identity fields wrong: %+v", ct)
	}
	if !almostEqual(ct.PnL, 196*0.052*0.98) {
		t.Errorf("PnL = %.4f, want %.4f", ct.PnL, 196*0.052*0.98)
	}
	wantPct := ct.PnL / 99.96 * 100
	if !almostEqual(ct.PnLPct, wantPct) {
		t.Errorf("PnLPct = %.4f, want %.4f", ct.PnLPct, wantPct)
	}
	if !ct.ClosedAt.Equal(closed) {
		t.Errorf("ClosedAt = %s", ct.ClosedAt)
	}
}

func TestPositionGainPct(t *testing.T) {
	p := &Position{EntryPrice: 0.50}
	if got := p.GainPct(0.56); !almostEqual(got, 12) {
		t.Errorf("GainPct(0.56) = %.4f, want 12", got)
	}
	if got := p.GainPct(0.40); !almostEqual(got, -20) {
		t.Errorf("GainPct(0.40) = %.4f, want -20", got)
	}
}
