package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// LateConfig holds the late-window threshold predicate's parameters.
type LateConfig struct {
	EntryPrice            float64
	ChoppyCutoff          float64
	TrackingStart         time.Duration // before end_time
	Decision              time.Duration // before end_time
	ManipulationMarginUSD float64
}

// Late watches both sides' mid prices during the tracking sub-window and, at
// the decision instant, enters the dominant side if exactly one crossed the
// entry threshold while the other stayed below the choppy cutoff. A venue
// book that disagrees with the spot tape by more than the manipulation
// margin vetoes the entry.
type Late struct {
	cfg    LateConfig
	books  BookSource
	hist   *History
	logger *slog.Logger

	mu     sync.Mutex
	tracks map[string]*lateTrack
}

type lateTrack struct {
	maxUpMid   float64
	maxDownMid float64
	decided    bool
	end        time.Time
}

// NewLate creates the late-window predicate.
func NewLate(cfg LateConfig, books BookSource, hist *History, logger *slog.Logger) *Late {
	return &Late{
		cfg:    cfg,
		books:  books,
		hist:   hist,
		logger: logger.With(slog.String("strategy", "late")),
		tracks: make(map[string]*lateTrack),
	}
}

func (l *Late) Name() string { return "late" }

func (l *Late) Evaluate(ctx context.Context, w domain.Window, now time.Time) (domain.Signal, bool) {
	remaining := w.EndTime.Sub(now)
	if remaining <= 0 || remaining > l.cfg.TrackingStart {
		return domain.Signal{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)

	tr, ok := l.tracks[w.Slug]
	if !ok {
		tr = &lateTrack{end: w.EndTime}
		l.tracks[w.Slug] = tr
	}

	if remaining > l.cfg.Decision {
		l.observe(ctx, w, tr)
		return domain.Signal{}, false
	}
	if tr.decided {
		return domain.Signal{}, false
	}
	tr.decided = true
	return l.decide(w, tr, now)
}

// observe samples both sides' mid prices during the tracking phase.
func (l *Late) observe(ctx context.Context, w domain.Window, tr *lateTrack) {
	if up, err := l.books.GetBook(ctx, w.UpTokenID); err == nil {
		if mid := up.MidPrice(); mid > tr.maxUpMid {
			tr.maxUpMid = mid
		}
	}
	if down, err := l.books.GetBook(ctx, w.DownTokenID); err == nil {
		if mid := down.MidPrice(); mid > tr.maxDownMid {
			tr.maxDownMid = mid
		}
	}
}

// decide resolves the tracked maxima into a signal, or nothing.
func (l *Late) decide(w domain.Window, tr *lateTrack, now time.Time) (domain.Signal, bool) {
	upHit := tr.maxUpMid >= l.cfg.EntryPrice
	downHit := tr.maxDownMid >= l.cfg.EntryPrice

	var side domain.Side
	switch {
	case upHit && !downHit && tr.maxDownMid < l.cfg.ChoppyCutoff:
		side = domain.SideUp
	case downHit && !upHit && tr.maxUpMid < l.cfg.ChoppyCutoff:
		side = domain.SideDown
	default:
		return domain.Signal{}, false
	}

	spot, haveSpot := l.hist.Latest()
	if haveSpot && w.ReferencePrice > 0 && l.cfg.ManipulationMarginUSD > 0 {
		margin := l.cfg.ManipulationMarginUSD
		if side == domain.SideUp && spot.Price < w.ReferencePrice-margin ||
			side == domain.SideDown && spot.Price > w.ReferencePrice+margin {
			l.logger.Warn("venue book disagrees with spot, skipping",
				slog.String("slug", w.Slug),
				slog.String("side", string(side)),
				slog.Float64("spot", spot.Price),
				slog.Float64("reference", w.ReferencePrice),
			)
			return domain.Signal{}, false
		}
	}

	return domain.Signal{
		Kind:    domain.SignalLateEntry,
		Window:  w.Ref(),
		Side:    side,
		AtPrice: spot.Price,
		Reason:  fmt.Sprintf("%s dominant into the close", side),
		Metadata: map[string]any{
			"max_up_mid":   tr.maxUpMid,
			"max_down_mid": tr.maxDownMid,
		},
	}, true
}

// pruneLocked drops trackers for windows that have ended.
func (l *Late) pruneLocked(now time.Time) {
	for slug, tr := range l.tracks {
		if now.After(tr.end) {
			delete(l.tracks, slug)
		}
	}
}
