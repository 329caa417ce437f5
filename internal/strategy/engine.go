package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// signalBuffer is the capacity of the emitted signal channel. Entries are
// serialized downstream, so a small buffer is enough.
const signalBuffer = 16

// Windows is the engine's view of the window registry.
type Windows interface {
	Snapshot() []domain.Window
	LatchOpenPrice(slug string, tick domain.Tick) bool
	MarkSignalFired(slug string) bool
}

// EngineConfig holds the evaluation cadence and the signal debounce.
type EngineConfig struct {
	PollInterval  time.Duration
	Debounce      time.Duration
	SettleSeconds time.Duration
	ClosingCutoff time.Duration
}

// Engine consumes the tick stream, latches window open prices, and runs the
// configured predicate over every active window on a fixed cadence. Signals
// pass the per-window fired latch and the global debounce before emission,
// so downstream sees at most one signal per window.
type Engine struct {
	cfg     EngineConfig
	strat   Strategy
	windows Windows
	hist    *History
	events  *domain.EventLog
	stats   *domain.Stats
	logger  *slog.Logger

	ticks   <-chan domain.Tick
	signals chan domain.Signal

	// pending holds slugs still waiting for an open-price latch. Engine-local;
	// only Run touches it.
	pending map[string]struct{}

	lastFired time.Time
}

// NewEngine creates an Engine. Run must be called to start it.
func NewEngine(
	cfg EngineConfig,
	strat Strategy,
	windows Windows,
	hist *History,
	ticks <-chan domain.Tick,
	events *domain.EventLog,
	stats *domain.Stats,
	logger *slog.Logger,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Engine{
		cfg:     cfg,
		strat:   strat,
		windows: windows,
		hist:    hist,
		events:  events,
		stats:   stats,
		logger:  logger.With(slog.String("component", "engine"), slog.String("strategy", strat.Name())),
		ticks:   ticks,
		signals: make(chan domain.Signal, signalBuffer),
		pending: make(map[string]struct{}),
	}
}

// Signals is the emitted signal stream.
func (e *Engine) Signals() <-chan domain.Signal { return e.signals }

// Run pumps ticks and evaluates windows until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-e.ticks:
			if !ok {
				return nil
			}
			e.onTick(tick)
		case now := <-ticker.C:
			e.evaluate(ctx, now)
		}
	}
}

// onTick records the tick and offers it to every window still waiting for an
// open price. The registry enforces the settle period and immutability.
func (e *Engine) onTick(tick domain.Tick) {
	e.hist.Record(tick)
	for slug := range e.pending {
		if e.windows.LatchOpenPrice(slug, tick) {
			delete(e.pending, slug)
		}
	}
}

// evaluate refreshes the pending-latch set and runs the predicate over every
// active window without a fired signal.
func (e *Engine) evaluate(ctx context.Context, now time.Time) {
	windows := e.windows.Snapshot()

	for slug := range e.pending {
		delete(e.pending, slug)
	}
	for i := range windows {
		if !windows[i].OpenPriceSet {
			e.pending[windows[i].Slug] = struct{}{}
		}
	}

	for i := range windows {
		w := windows[i]
		if w.SignalFired || w.Phase(now, e.cfg.SettleSeconds, e.cfg.ClosingCutoff) != domain.PhaseActive {
			continue
		}
		if !e.lastFired.IsZero() && now.Sub(e.lastFired) < e.cfg.Debounce {
			return
		}

		sig, ok := e.strat.Evaluate(ctx, w, now)
		if !ok {
			continue
		}
		// The latch is the authority; a lost race means another evaluation
		// already fired for this window.
		if !e.windows.MarkSignalFired(w.Slug) {
			continue
		}
		sig.ID = uuid.NewString()
		sig.FiredAt = now
		e.emit(ctx, sig)
		e.lastFired = now
	}
}

// emit publishes the signal and records it in the stats and event log.
func (e *Engine) emit(ctx context.Context, sig domain.Signal) {
	e.logger.Info("signal fired",
		slog.String("signal_id", sig.ID),
		slog.String("kind", string(sig.Kind)),
		slog.String("slug", sig.Window.Slug),
		slog.String("side", string(sig.Side)),
		slog.Float64("at_price", sig.AtPrice),
		slog.String("reason", sig.Reason),
	)
	if e.stats != nil {
		e.stats.RecordSignal()
	}
	if e.events != nil {
		e.events.AppendAt(sig.FiredAt, domain.EventSignal, sig.Reason)
	}

	select {
	case e.signals <- sig:
	case <-ctx.Done():
	}
}
