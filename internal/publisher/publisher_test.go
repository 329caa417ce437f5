package publisher

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

type staticFeed struct{ st domain.FeedStatus }

func (f *staticFeed) Status() domain.FeedStatus { return f.st }

type staticRegistry struct {
	windows []domain.Window
	stale   bool
}

func (r *staticRegistry) Snapshot() []domain.Window { return r.windows }
func (r *staticRegistry) Stale() bool               { return r.stale }

type staticBook struct {
	open   []domain.Position
	closed []domain.ClosedTrade
}

func (b *staticBook) Open() []domain.Position      { return b.open }
func (b *staticBook) Closed() []domain.ClosedTrade { return b.closed }

type staticHistory struct{ samples []domain.Tick }

func (h *staticHistory) Samples() []domain.Tick { return h.samples }

func testPublisher(now time.Time) *Publisher {
	stats := domain.NewStats()
	stats.RecordSignal()
	stats.RecordTrade(domain.ClosedTrade{
		WindowSlug: "w", PnL: 9.99, Status: domain.ExitTakeProfit, ClosedAt: now,
	})
	events := domain.NewEventLog()
	events.Append(domain.EventBuy, "w Up 196 @ 0.510")

	return New(
		Config{
			Strategy:      "spike",
			DryRun:        true,
			SettleSeconds: 10 * time.Second,
			ClosingCutoff: 30 * time.Second,
		},
		&staticFeed{st: domain.FeedStatus{Price: 97000, LastTick: now, Live: true}},
		&staticRegistry{windows: []domain.Window{{
			Slug:         "w",
			EndTime:      now.Add(200 * time.Second),
			OpenPrice:    97000,
			OpenPriceSet: true,
		}}},
		&staticBook{
			open: []domain.Position{{ID: "pos-1", Window: domain.WindowRef{Slug: "w"}, Cost: 99.96}},
			closed: []domain.ClosedTrade{{
				WindowSlug: "w", PnL: 9.99, Status: domain.ExitTakeProfit, ClosedAt: now,
			}},
		},
		stats,
		events,
		&staticHistory{samples: []domain.Tick{{Price: 97000, At: now.Add(-time.Second)}}},
		slog.Default(),
	)
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	p := testPublisher(now)

	payload, err := json.Marshal(p.Build(now))
	if err != nil {
		t.Fatal(err)
	}
	var got Snapshot
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}

	if got.Strategy != "spike" || !got.DryRun {
		t.Errorf("identity = %s/%v", got.Strategy, got.DryRun)
	}
	if !got.Feed.Live || got.Feed.Price != 97000 {
		t.Errorf("feed = %+v", got.Feed)
	}
	if len(got.Windows) != 1 || got.Windows[0].Phase != domain.PhaseActive {
		t.Errorf("windows = %+v", got.Windows)
	}
	if len(got.Positions) != 1 || len(got.ClosedTrades) != 1 {
		t.Errorf("positions/trades = %d/%d", len(got.Positions), len(got.ClosedTrades))
	}
	if got.Stats.Trades != 1 || got.Stats.TotalPnL != 9.99 || got.Stats.Signals != 1 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.Events) != 1 || got.Events[0].Kind != domain.EventBuy {
		t.Errorf("events = %+v", got.Events)
	}
	if len(got.PriceHistory) != 1 || got.PriceHistory[0].Price != 97000 {
		t.Errorf("history = %+v", got.PriceHistory)
	}
}

func TestWindowPhaseDerivation(t *testing.T) {
	now := time.Now()
	p := testPublisher(now)

	snap := p.Build(now)
	if got := snap.Windows[0].RemainingSec; got < 199 || got > 201 {
		t.Errorf("remaining = %v, want about 200", got)
	}

	// Inside the closing cutoff the phase flips.
	snap = p.Build(now.Add(175 * time.Second))
	if snap.Windows[0].Phase != domain.PhaseClosing {
		t.Errorf("phase = %s, want closing", snap.Windows[0].Phase)
	}
}

func TestNotifyNeverBlocks(t *testing.T) {
	p := testPublisher(time.Now())
	for i := 0; i < 100; i++ {
		p.Notify()
	}
}
