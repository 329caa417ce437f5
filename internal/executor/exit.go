package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

const (
	// sellRetries and sellRetryDelay bound the sell attempts before a
	// position is flagged stuck and left for resolution.
	sellRetries    = 3
	sellRetryDelay = 500 * time.Millisecond

	// venueGoneAfter is how long book reads may fail before the operator is
	// alerted. Positions are held, never dumped.
	venueGoneAfter = 5 * time.Minute
)

// ExitConfig holds the exit state-machine thresholds, in percent gain over
// entry.
type ExitConfig struct {
	ProfitTargetPct    float64
	MoonbagPct         float64
	DrawdownTriggerPct float64
	ProtectionExitPct  float64
	HardStopPct        float64
	LateHardSell       float64 // emergency bid floor for late-window entries
	PassiveSellPrice   float64 // absolute exit price for passive limit entries
	EvalInterval       time.Duration
}

// exitAction is the outcome of one exit evaluation.
type exitAction int

const (
	actHold exitAction = iota
	actSell
	actToProtection
	actToMoonbag
)

// decide applies the exit rules in order against an updated peak. gain and
// peak are percents; bid is the realisable sell price.
func decide(p domain.Position, gain, peak, bid float64, cfg ExitConfig) (exitAction, domain.ExitStatus) {
	switch {
	case gain <= cfg.HardStopPct:
		return actSell, domain.ExitHardStop
	case p.Kind == domain.SignalLateEntry && cfg.LateHardSell > 0 && bid <= cfg.LateHardSell:
		return actSell, domain.ExitHardStop
	case p.Mode == domain.ModeProtection && gain >= cfg.ProtectionExitPct:
		return actSell, domain.ExitProtection
	case p.Mode == domain.ModeNormal && gain <= cfg.DrawdownTriggerPct:
		return actToProtection, ""
	case p.Mode == domain.ModeMoonbag && gain <= cfg.ProfitTargetPct:
		return actSell, domain.ExitMoonbagTrail
	case p.Mode == domain.ModeNormal && peak >= cfg.MoonbagPct:
		return actToMoonbag, ""
	case p.Mode == domain.ModeNormal && gain >= cfg.ProfitTargetPct:
		return actSell, domain.ExitTakeProfit
	case p.Kind == domain.SignalPassive && cfg.PassiveSellPrice > 0 &&
		p.Mode == domain.ModeNormal && bid >= cfg.PassiveSellPrice:
		// Passive entries exit at an absolute price rather than a gain.
		return actSell, domain.ExitTakeProfit
	}
	return actHold, ""
}

// ExitManager periodically re-evaluates every open position against the
// realisable bid. It is the sole mutator of position fields after entry.
type ExitManager struct {
	cfg   ExitConfig
	venue Venue
	book  *PositionBook
	*settler

	logger *slog.Logger

	lastBookOK time.Time
	goneRaised bool
}

// NewExitManager creates the exit evaluator.
func NewExitManager(
	cfg ExitConfig,
	venue Venue,
	book *PositionBook,
	risk *Risk,
	stats *domain.Stats,
	events *domain.EventLog,
	notifier Notifier,
	feeRate float64,
	logger *slog.Logger,
) *ExitManager {
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = time.Second
	}
	l := logger.With(slog.String("component", "exit"))
	return &ExitManager{
		cfg:   cfg,
		venue: venue,
		book:  book,
		settler: &settler{
			book:     book,
			risk:     risk,
			stats:    stats,
			events:   events,
			notifier: notifier,
			feeRate:  feeRate,
			logger:   l,
		},
		logger: l,
	}
}

// Run evaluates all open positions on the configured cadence until ctx ends.
func (m *ExitManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			m.EvalAll(ctx, now)
		}
	}
}

// EvalAll runs one evaluation round over every open position.
func (m *ExitManager) EvalAll(ctx context.Context, now time.Time) {
	for _, p := range m.book.Open() {
		if p.Status != domain.PositionOpen || p.SellStuck {
			continue
		}
		// Both-sides pairs and ended windows belong to the resolution poller.
		if p.Kind == domain.SignalBothSides || !now.Before(p.Window.EndTime) {
			continue
		}

		bk, err := m.venue.GetBook(ctx, p.TokenID)
		if err != nil {
			m.noteVenueError(now, err)
			continue
		}
		m.noteVenueOK(now)

		bid := bk.BestBid()
		if bid <= 0 {
			continue
		}
		m.eval(ctx, p, bid, now)
	}
}

// eval updates the peak and applies the exit rules to one position.
func (m *ExitManager) eval(ctx context.Context, p domain.Position, bid float64, now time.Time) {
	gain := p.GainPct(bid)
	peak := p.PeakGainPct
	if gain > peak {
		peak = gain
	}

	action, status := decide(p, gain, peak, bid, m.cfg)

	switch action {
	case actHold:
		m.book.Update(p.Window.Slug, func(q *domain.Position) { q.PeakGainPct = peak })
	case actToProtection:
		m.book.Update(p.Window.Slug, func(q *domain.Position) {
			q.PeakGainPct = peak
			q.Mode = domain.ModeProtection
		})
		m.transitioned(p, domain.ModeProtection, gain, now)
	case actToMoonbag:
		m.book.Update(p.Window.Slug, func(q *domain.Position) {
			q.PeakGainPct = peak
			q.Mode = domain.ModeMoonbag
		})
		m.transitioned(p, domain.ModeMoonbag, gain, now)
	case actSell:
		m.book.Update(p.Window.Slug, func(q *domain.Position) {
			q.PeakGainPct = peak
			q.Status = domain.PositionClosing
		})
		m.sell(ctx, p, bid, status, now)
	}
}

// sell places a market sell with bounded retries. Exhausted retries flag the
// position stuck; it is then held to resolution.
func (m *ExitManager) sell(ctx context.Context, p domain.Position, bid float64, status domain.ExitStatus, now time.Time) {
	req := domain.OrderRequest{
		TokenID: p.TokenID,
		Side:    domain.OrderSell,
		Price:   bid,
		Size:    p.Shares,
		Type:    domain.OrderMarket,
	}

	var lastErr error
	for attempt := 0; attempt < sellRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sellRetryDelay):
			}
		}
		ack, err := m.venue.PlaceOrder(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		exit := bid
		if ack.AvgPrice > 0 {
			exit = ack.AvgPrice
		}
		m.settle(p, exit, status, now)
		return
	}

	m.book.Update(p.Window.Slug, func(q *domain.Position) {
		q.SellStuck = true
		q.Status = domain.PositionOpen
	})
	m.logger.Error("sell stuck, holding to resolution",
		slog.String("slug", p.Window.Slug),
		slog.String("error", lastErr.Error()),
	)
	if m.events != nil {
		m.events.AppendAt(now, domain.EventError,
			fmt.Sprintf("%s: %s", p.Window.Slug, domain.ErrSellStuck))
	}
	if m.notifier != nil {
		m.notifier.Alert("sell stuck on " + p.Window.Slug)
	}
}

func (m *ExitManager) transitioned(p domain.Position, mode domain.PositionMode, gain float64, now time.Time) {
	m.logger.Info("position mode changed",
		slog.String("slug", p.Window.Slug),
		slog.String("mode", string(mode)),
		slog.Float64("gain_pct", gain),
	)
	if m.events != nil {
		m.events.AppendAt(now, domain.EventInfo,
			fmt.Sprintf("%s entered %s at %+.1f%%", p.Window.Slug, mode, gain))
	}
}

// noteVenueError raises the operator alert once after five minutes of failed
// book reads. Positions stay in memory untouched.
func (m *ExitManager) noteVenueError(now time.Time, err error) {
	if m.lastBookOK.IsZero() {
		m.lastBookOK = now
		return
	}
	if !m.goneRaised && now.Sub(m.lastBookOK) > venueGoneAfter {
		m.goneRaised = true
		m.logger.Error("venue unreachable, holding positions",
			slog.String("error", err.Error()))
		if m.events != nil {
			m.events.AppendAt(now, domain.EventError, domain.ErrVenueGone.Error())
		}
		if m.notifier != nil {
			m.notifier.Alert("venue unreachable, positions held")
		}
	}
}

func (m *ExitManager) noteVenueOK(now time.Time) {
	m.lastBookOK = now
	m.goneRaised = false
}
