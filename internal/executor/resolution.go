package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// MarketLookup fetches a single market by slug. Satisfied by the Gamma
// client.
type MarketLookup interface {
	GetMarketBySlug(ctx context.Context, slug string) (domain.MarketDescriptor, error)
}

// ResolutionConfig holds the settlement poller's cadence and give-up bound.
type ResolutionConfig struct {
	PollInterval time.Duration
	Grace        time.Duration // past end_time before a position is left for the operator
}

// Resolution settles positions whose window has ended by polling the venue
// until the outcome prices pin to one side. Winners pay 1.00 per share,
// losers 0. A market that never resolves inside the grace is alerted once
// and left open for the operator.
type Resolution struct {
	cfg     ResolutionConfig
	markets MarketLookup
	book    *PositionBook
	*settler

	logger *slog.Logger

	// abandoned tracks slugs already alerted past the grace.
	abandoned map[string]struct{}
}

// NewResolution creates the settlement poller.
func NewResolution(
	cfg ResolutionConfig,
	markets MarketLookup,
	book *PositionBook,
	risk *Risk,
	stats *domain.Stats,
	events *domain.EventLog,
	notifier Notifier,
	feeRate float64,
	logger *slog.Logger,
) *Resolution {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	l := logger.With(slog.String("component", "resolution"))
	return &Resolution{
		cfg:     cfg,
		markets: markets,
		book:    book,
		settler: &settler{
			book:     book,
			risk:     risk,
			stats:    stats,
			events:   events,
			notifier: notifier,
			feeRate:  feeRate,
			logger:   l,
		},
		logger:    l,
		abandoned: make(map[string]struct{}),
	}
}

// Run polls until ctx ends.
func (r *Resolution) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.Poll(ctx, now)
		}
	}
}

// Poll runs one settlement round over positions past their window end.
func (r *Resolution) Poll(ctx context.Context, now time.Time) {
	for _, p := range r.book.Open() {
		if now.Before(p.Window.EndTime) {
			continue
		}
		if now.After(p.Window.EndTime.Add(r.cfg.Grace)) {
			r.abandon(p, now)
			continue
		}

		desc, err := r.markets.GetMarketBySlug(ctx, p.Window.Slug)
		if err != nil {
			r.logger.Warn("resolution lookup failed",
				slog.String("slug", p.Window.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		winner, ok := desc.Resolved()
		if !ok {
			continue
		}
		r.settlePosition(p, winner, now)
	}
}

// settlePosition pays out one resolved position.
func (r *Resolution) settlePosition(p domain.Position, winner domain.Side, now time.Time) {
	// A both-sides pair always holds the winning token; the combined
	// per-share entry is below 1.00 by construction.
	if p.Kind == domain.SignalBothSides {
		r.settle(p, 1.0, domain.ExitResolvedWin, now)
		return
	}
	if winner == p.Side {
		r.settle(p, 1.0, domain.ExitResolvedWin, now)
		return
	}
	r.settle(p, 0.0, domain.ExitResolvedLoss, now)
}

// abandon alerts once for a position stuck past the resolution grace.
func (r *Resolution) abandon(p domain.Position, now time.Time) {
	if _, seen := r.abandoned[p.Window.Slug]; seen {
		return
	}
	r.abandoned[p.Window.Slug] = struct{}{}
	r.logger.Error("window unresolved past grace, leaving position for operator",
		slog.String("slug", p.Window.Slug),
	)
	if r.events != nil {
		r.events.AppendAt(now, domain.EventError, p.Window.Slug+": unresolved past grace")
	}
	if r.notifier != nil {
		r.notifier.Alert("unresolved window " + p.Window.Slug + ", position left open")
	}
}
