package executor

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// RiskConfig holds the entry risk guards.
type RiskConfig struct {
	DailyLossLimitUSDC  float64
	MaxLossPerTradeUSDC float64
	LossesToPause       int
	PauseAfterStreak    time.Duration
	HardStopPct         float64 // needed to size the per-trade loss cap
}

// Risk gates new entries on realized losses: a daily loss limit, a sizing cap
// that bounds the worst-case hard-stop loss per trade, and a cooling-off
// pause after a losing streak.
type Risk struct {
	cfg    RiskConfig
	stats  *domain.Stats
	logger *slog.Logger

	mu          sync.Mutex
	streak      int
	pausedUntil time.Time
}

// NewRisk creates the entry risk guard.
func NewRisk(cfg RiskConfig, stats *domain.Stats, logger *slog.Logger) *Risk {
	return &Risk{
		cfg:    cfg,
		stats:  stats,
		logger: logger.With(slog.String("component", "risk")),
	}
}

// AllowEntry reports whether a new entry may be taken at the given instant.
func (r *Risk) AllowEntry(now time.Time) error {
	r.mu.Lock()
	paused := now.Before(r.pausedUntil)
	until := r.pausedUntil
	r.mu.Unlock()

	if paused {
		return fmt.Errorf("%w until %s", domain.ErrRiskPaused, until.Format(time.TimeOnly))
	}
	if r.cfg.DailyLossLimitUSDC > 0 && r.stats != nil {
		if pnl := r.stats.DailyPnL(now); pnl <= -r.cfg.DailyLossLimitUSDC {
			return fmt.Errorf("%w: daily pnl %.2f at limit", domain.ErrRiskPaused, pnl)
		}
	}
	return nil
}

// MaxCost is the largest position cost whose hard-stop loss stays within the
// per-trade limit. Unbounded when the limit or the hard stop is unset.
func (r *Risk) MaxCost() float64 {
	if r.cfg.MaxLossPerTradeUSDC <= 0 || r.cfg.HardStopPct >= 0 {
		return math.MaxFloat64
	}
	return r.cfg.MaxLossPerTradeUSDC / (-r.cfg.HardStopPct / 100)
}

// RecordClose feeds a finished trade into the streak counter. A losing
// streak of the configured length pauses entries and resets the counter.
func (r *Risk) RecordClose(t domain.ClosedTrade, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.PnL >= 0 {
		r.streak = 0
		return
	}
	r.streak++
	if r.cfg.LossesToPause > 0 && r.streak >= r.cfg.LossesToPause {
		r.pausedUntil = now.Add(r.cfg.PauseAfterStreak)
		r.streak = 0
		r.logger.Warn("losing streak, pausing entries",
			slog.Int("losses", r.cfg.LossesToPause),
			slog.Time("until", r.pausedUntil),
		)
	}
}
