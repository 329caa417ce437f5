package strategy

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

type fakeWindows struct {
	mu      sync.Mutex
	windows map[string]*domain.Window
}

func newFakeWindows(ws ...domain.Window) *fakeWindows {
	f := &fakeWindows{windows: make(map[string]*domain.Window)}
	for i := range ws {
		w := ws[i]
		f.windows[w.Slug] = &w
	}
	return f
}

func (f *fakeWindows) Snapshot() []domain.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Window, 0, len(f.windows))
	for _, w := range f.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (f *fakeWindows) LatchOpenPrice(slug string, tick domain.Tick) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[slug]
	if !ok || w.OpenPriceSet {
		return false
	}
	w.OpenPrice = tick.Price
	w.OpenPriceSet = true
	return true
}

func (f *fakeWindows) MarkSignalFired(slug string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[slug]
	if !ok || w.SignalFired {
		return false
	}
	w.SignalFired = true
	return true
}

func engineConfig() EngineConfig {
	return EngineConfig{
		PollInterval:  500 * time.Millisecond,
		Debounce:      10 * time.Second,
		SettleSeconds: 10 * time.Second,
		ClosingCutoff: 30 * time.Second,
	}
}

func newTestEngine(strat Strategy, windows Windows, hist *History) *Engine {
	return NewEngine(engineConfig(), strat, windows, hist,
		make(chan domain.Tick), domain.NewEventLog(), domain.NewStats(), slog.Default())
}

func TestEngineFiresOncePerWindow(t *testing.T) {
	now := time.Now()
	windows := newFakeWindows(activeWindow(now))

	hist := NewHistory(3 * time.Second)
	hist.Record(domain.Tick{Price: 97000, At: now.Add(-2 * time.Second)})
	hist.Record(domain.Tick{Price: 97025, At: now})

	e := newTestEngine(NewSpike(SpikeConfig{MoveUSD: 20, WindowSec: 3}, hist), windows, hist)
	ctx := context.Background()

	e.evaluate(ctx, now)
	select {
	case sig := <-e.Signals():
		if sig.Kind != domain.SignalSpike || sig.ID == "" {
			t.Errorf("signal = %+v", sig)
		}
	default:
		t.Fatal("expected a signal")
	}

	// The spike persists but the window latch holds.
	e.evaluate(ctx, now.Add(11*time.Second))
	select {
	case sig := <-e.Signals():
		t.Fatalf("unexpected second signal %+v", sig)
	default:
	}
}

func TestEngineGlobalDebounce(t *testing.T) {
	now := time.Now()
	w1, w2 := activeWindow(now), activeWindow(now)
	w1.Slug, w2.Slug = "window-a", "window-b"
	windows := newFakeWindows(w1, w2)

	hist := NewHistory(3 * time.Second)
	e := newTestEngine(NewPassive(PassiveConfig{EntryPrice: 0.50, Side: domain.SideUp}), windows, hist)
	ctx := context.Background()

	e.evaluate(ctx, now)
	if got := len(e.Signals()); got != 1 {
		t.Fatalf("first round fired %d signals, want 1 (debounced)", got)
	}
	<-e.Signals()

	// Same instant: still inside the debounce.
	e.evaluate(ctx, now)
	if got := len(e.Signals()); got != 0 {
		t.Fatalf("debounced round fired %d signals", got)
	}

	// Past the debounce the second window fires.
	e.evaluate(ctx, now.Add(10*time.Second))
	if got := len(e.Signals()); got != 1 {
		t.Fatalf("post-debounce round fired %d signals, want 1", got)
	}
	sig := <-e.Signals()
	if sig.Window.Slug != "window-b" {
		t.Errorf("slug = %s, want window-b", sig.Window.Slug)
	}
}

func TestEngineSkipsNonActivePhases(t *testing.T) {
	now := time.Now()
	closing := activeWindow(now)
	closing.Slug = "closing"
	closing.EndTime = now.Add(20 * time.Second)
	settling := activeWindow(now)
	settling.Slug = "settling"
	settling.OpenPriceSet = false
	settling.EndTime = now.Add(295 * time.Second)
	windows := newFakeWindows(closing, settling)

	e := newTestEngine(NewPassive(PassiveConfig{Side: domain.SideUp}), windows, NewHistory(3*time.Second))
	e.evaluate(context.Background(), now)
	if got := len(e.Signals()); got != 0 {
		t.Fatalf("fired %d signals outside the active phase", got)
	}
}

func TestEngineLatchesPendingWindows(t *testing.T) {
	now := time.Now()
	w := activeWindow(now)
	w.OpenPriceSet = false
	w.EndTime = now.Add(280 * time.Second) // 20s in, settle elapsed
	windows := newFakeWindows(w)

	hist := NewHistory(3 * time.Second)
	e := newTestEngine(NewSpike(SpikeConfig{MoveUSD: 20, WindowSec: 3}, hist), windows, hist)

	// evaluate populates the pending set, the next tick latches.
	e.evaluate(context.Background(), now)
	e.onTick(domain.Tick{Price: 97012, At: now})

	got := windows.windows[w.Slug]
	if !got.OpenPriceSet || got.OpenPrice != 97012 {
		t.Errorf("window not latched: %+v", got)
	}
	if _, pending := e.pending[w.Slug]; pending {
		t.Error("latched window must leave the pending set")
	}
}
