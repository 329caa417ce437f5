// Package registry discovers and tracks the currently active binary windows.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
	"github.com/alanyoungcy/spikebot/internal/platform/polymarket"
)

// staleThreshold is how many consecutive discovery failures mark the
// registry stale. Stale is a warning, never fatal.
const staleThreshold = 3

// Discoverer lists the venue's active windows. Satisfied by the Gamma client.
type Discoverer interface {
	ListWindows(ctx context.Context, assetTag, durationTag string) ([]domain.MarketDescriptor, error)
}

// Config holds registry cadence and retention bounds.
type Config struct {
	AssetTag        string
	DurationTag     string
	RefreshInterval time.Duration
	ResolutionGrace time.Duration
	Lookahead       time.Duration
	SettleSeconds   time.Duration
	ClosingCutoff   time.Duration
}

// Registry owns the window map. It is the sole writer of window identity and
// the open-price/signal-fired latches; the refresh task only touches derived
// metadata on re-discovery.
type Registry struct {
	cfg      Config
	discover Discoverer
	logger   *slog.Logger
	events   *domain.EventLog

	mu       sync.RWMutex
	windows  map[string]*domain.Window
	failures int
}

// New creates a Registry. Run must be called to start periodic discovery.
func New(cfg Config, d Discoverer, events *domain.EventLog, logger *slog.Logger) *Registry {
	if cfg.ClosingCutoff <= 0 {
		cfg.ClosingCutoff = 30 * time.Second
	}
	return &Registry{
		cfg:      cfg,
		discover: d,
		logger:   logger.With(slog.String("component", "registry")),
		events:   events,
		windows:  make(map[string]*domain.Window),
	}
}

// Run refreshes the registry on the configured cadence until ctx ends. The
// first refresh happens immediately.
func (r *Registry) Run(ctx context.Context) error {
	r.refresh(ctx)

	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh runs one discovery round and folds the result into the window map.
func (r *Registry) refresh(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	descriptors, err := r.discover.ListWindows(reqCtx, r.cfg.AssetTag, r.cfg.DurationTag)
	if err != nil {
		r.recordFailure(err)
		return
	}
	r.Apply(descriptors, time.Now())
}

// recordFailure counts a failed discovery round and raises the stale warning
// once the threshold is crossed.
func (r *Registry) recordFailure(err error) {
	r.mu.Lock()
	r.failures++
	stale := r.failures == staleThreshold
	r.mu.Unlock()

	r.logger.Warn("discovery failed", slog.String("error", err.Error()))
	if stale {
		r.logger.Warn("registry stale", slog.Int("consecutive_failures", staleThreshold))
		if r.events != nil {
			r.events.Append(domain.EventWarn, "registry stale: discovery failing")
		}
	}
}

// Apply folds one discovery round into the registry at the given instant.
// New windows are added; known windows only get derived metadata refreshed;
// windows past end_time plus the resolution grace are evicted.
func (r *Registry) Apply(descriptors []domain.MarketDescriptor, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0

	for i := range descriptors {
		d := &descriptors[i]
		if d.Closed {
			continue
		}
		// Outcome prices already pinned mean the market is effectively
		// resolved; not a live window.
		if _, resolved := d.Resolved(); resolved {
			continue
		}
		if d.EndTime.Before(now.Add(-r.cfg.ResolutionGrace)) || d.EndTime.After(now.Add(r.cfg.Lookahead)) {
			continue
		}

		if existing, ok := r.windows[d.Slug]; ok {
			// Re-discovery never resets the latches.
			existing.Question = d.Question
			existing.EndTime = d.EndTime
			continue
		}
		w := d.Window(polymarket.ParseReferencePrice(d.Question))
		r.windows[d.Slug] = w
		r.logger.Info("window added",
			slog.String("slug", w.Slug),
			slog.Time("end_time", w.EndTime),
		)
	}

	for slug, w := range r.windows {
		if now.After(w.EndTime.Add(r.cfg.ResolutionGrace)) {
			delete(r.windows, slug)
			r.logger.Info("window evicted", slog.String("slug", slug))
		}
	}
}

// Stale reports whether discovery has failed three or more times in a row.
func (r *Registry) Stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures >= staleThreshold
}

// Snapshot returns copies of all tracked windows ordered by end time.
func (r *Registry) Snapshot() []domain.Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Window, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out
}

// Get returns a copy of one window.
func (r *Registry) Get(slug string) (domain.Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[slug]
	if !ok {
		return domain.Window{}, false
	}
	return *w, true
}

// LatchOpenPrice pins the window's open price from a tick, if the settle
// period has elapsed and no price is latched yet. Ticks after the window end
// never change a latched price. Returns true when the latch fired.
func (r *Registry) LatchOpenPrice(slug string, tick domain.Tick) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[slug]
	if !ok || w.OpenPriceSet {
		return false
	}
	if tick.At.Before(w.StartTime().Add(r.cfg.SettleSeconds)) {
		return false
	}
	if !tick.At.Before(w.EndTime) {
		return false
	}
	w.OpenPrice = tick.Price
	w.OpenPriceSet = true
	w.OpenPriceAt = tick.At
	r.logger.Info("open price latched",
		slog.String("slug", slug),
		slog.Float64("open_price", tick.Price),
	)
	return true
}

// MarkSignalFired flips the window's signal latch. Returns false when a
// signal already fired, guaranteeing at most one entry per window.
func (r *Registry) MarkSignalFired(slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[slug]
	if !ok || w.SignalFired {
		return false
	}
	w.SignalFired = true
	return true
}
