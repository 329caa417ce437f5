// Package publisher serializes the bot's state into JSON snapshots and fans
// them out on the snapshot bus.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// Channel is the bus channel snapshots are published on.
const Channel = "spikebot.state"

const (
	// baseline is the unconditional publish cadence.
	baseline = time.Second

	// minGap caps mutation-driven publishes at 10 Hz.
	minGap = 100 * time.Millisecond
)

// FeedView exposes feed status to the snapshot.
type FeedView interface {
	Status() domain.FeedStatus
}

// RegistryView exposes the tracked windows to the snapshot.
type RegistryView interface {
	Snapshot() []domain.Window
	Stale() bool
}

// PositionView exposes positions and trade history to the snapshot.
type PositionView interface {
	Open() []domain.Position
	Closed() []domain.ClosedTrade
}

// HistoryView exposes the sampled price series to the snapshot.
type HistoryView interface {
	Samples() []domain.Tick
}

// WindowState is one window plus its derived phase.
type WindowState struct {
	domain.Window
	Phase        domain.WindowPhase `json:"phase"`
	RemainingSec float64            `json:"remaining_sec"`
}

// PricePoint is one sample of the dashboard price series.
type PricePoint struct {
	At    time.Time `json:"at"`
	Price float64   `json:"price"`
}

// Snapshot is the full serializable state published to observers.
type Snapshot struct {
	At            time.Time            `json:"at"`
	DryRun        bool                 `json:"dry_run"`
	Strategy      string               `json:"strategy"`
	Feed          domain.FeedStatus    `json:"feed"`
	RegistryStale bool                 `json:"registry_stale"`
	Windows       []WindowState        `json:"windows"`
	Positions     []domain.Position    `json:"positions"`
	ClosedTrades  []domain.ClosedTrade `json:"closed_trades"`
	Stats         domain.StatsSnapshot `json:"stats"`
	Events        []domain.Event       `json:"events"`
	PriceHistory  []PricePoint         `json:"price_history"`
}

// Config identifies the run and carries the phase parameters.
type Config struct {
	Strategy      string
	DryRun        bool
	SettleSeconds time.Duration
	ClosingCutoff time.Duration
}

// Publisher builds snapshots from the live state and publishes them on every
// mutation kick (debounced) plus a 1/s baseline. It holds no authoritative
// state and never blocks a mutator.
type Publisher struct {
	cfg      Config
	feed     FeedView
	registry RegistryView
	book     PositionView
	stats    *domain.Stats
	events   *domain.EventLog
	history  HistoryView
	buses    []domain.SnapshotBus
	logger   *slog.Logger

	kick chan struct{}

	lastPublish time.Time
	lastHour    string
}

// New creates a Publisher fanning out to the given buses.
func New(
	cfg Config,
	feed FeedView,
	registry RegistryView,
	book PositionView,
	stats *domain.Stats,
	events *domain.EventLog,
	history HistoryView,
	logger *slog.Logger,
	buses ...domain.SnapshotBus,
) *Publisher {
	return &Publisher{
		cfg:      cfg,
		feed:     feed,
		registry: registry,
		book:     book,
		stats:    stats,
		events:   events,
		history:  history,
		buses:    buses,
		logger:   logger.With(slog.String("component", "publisher")),
		kick:     make(chan struct{}, 1),
	}
}

// Notify signals a state mutation. Never blocks.
func (p *Publisher) Notify() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run publishes until ctx ends.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(baseline)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.publish(ctx, now)
			p.hourlyReport(now)
		case <-p.kick:
			now := time.Now()
			if now.Sub(p.lastPublish) < minGap {
				continue
			}
			p.publish(ctx, now)
		}
	}
}

// Flush publishes one final snapshot. Called during shutdown after the
// trading tasks have stopped.
func (p *Publisher) Flush(ctx context.Context) {
	p.publish(ctx, time.Now())
}

// publish serializes and fans out one snapshot.
func (p *Publisher) publish(ctx context.Context, now time.Time) {
	payload, err := json.Marshal(p.Build(now))
	if err != nil {
		p.logger.Error("snapshot marshal failed", slog.String("error", err.Error()))
		return
	}
	p.lastPublish = now

	for _, b := range p.buses {
		if err := b.Publish(ctx, Channel, payload); err != nil {
			p.logger.Warn("snapshot publish failed", slog.String("error", err.Error()))
		}
	}
}

// Build assembles the snapshot at the given instant.
func (p *Publisher) Build(now time.Time) Snapshot {
	windows := p.registry.Snapshot()
	states := make([]WindowState, 0, len(windows))
	for i := range windows {
		w := windows[i]
		states = append(states, WindowState{
			Window:       w,
			Phase:        w.Phase(now, p.cfg.SettleSeconds, p.cfg.ClosingCutoff),
			RemainingSec: w.TimeRemaining(now).Seconds(),
		})
	}

	samples := p.history.Samples()
	points := make([]PricePoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, PricePoint{At: s.At, Price: s.Price})
	}

	return Snapshot{
		At:            now,
		DryRun:        p.cfg.DryRun,
		Strategy:      p.cfg.Strategy,
		Feed:          p.feed.Status(),
		RegistryStale: p.registry.Stale(),
		Windows:       states,
		Positions:     p.book.Open(),
		ClosedTrades:  p.book.Closed(),
		Stats:         p.stats.Snapshot(),
		Events:        p.events.Snapshot(),
		PriceHistory:  points,
	}
}

// hourlyReport logs the finished hour's P&L on every Eastern hour rollover.
func (p *Publisher) hourlyReport(now time.Time) {
	hour := domain.HourKey(now)
	if p.lastHour == "" {
		p.lastHour = hour
		return
	}
	if hour == p.lastHour {
		return
	}
	prev := now.Add(-time.Hour)
	snap := p.stats.Snapshot()
	p.logger.Info("hourly report",
		slog.String("hour", p.lastHour),
		slog.Float64("hour_pnl", p.stats.HourPnL(prev)),
		slog.Float64("daily_pnl", p.stats.DailyPnL(now)),
		slog.Float64("total_pnl", snap.TotalPnL),
		slog.Int("trades", snap.Trades),
		slog.Float64("win_rate", snap.WinRate),
	)
	p.lastHour = hour
}
