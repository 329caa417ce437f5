package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

func testConfig() Config {
	return Config{
		AssetTag:        "btc",
		DurationTag:     "5m",
		RefreshInterval: 30 * time.Second,
		ResolutionGrace: 900 * time.Second,
		Lookahead:       1800 * time.Second,
		SettleSeconds:   10 * time.Second,
		ClosingCutoff:   30 * time.Second,
	}
}

func testRegistry() *Registry {
	return New(testConfig(), nil, domain.NewEventLog(), slog.Default())
}

func descriptor(slug string, end time.Time) domain.MarketDescriptor {
	return domain.MarketDescriptor{
		Slug:        slug,
		Question:    "Bitcoin Up or Down - 5 min ($97,000)",
		UpTokenID:   "up-" + slug,
		DownTokenID: "down-" + slug,
		EndTime:     end,
		UpPrice:     0.5,
		DownPrice:   0.5,
	}
}

func TestApplyAddsAndOrders(t *testing.T) {
	r := testRegistry()
	now := time.Now()

	r.Apply([]domain.MarketDescriptor{
		descriptor("w2", now.Add(10*time.Minute)),
		descriptor("w1", now.Add(5*time.Minute)),
	}, now)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len = %d", len(snap))
	}
	if snap[0].Slug != "w1" || snap[1].Slug != "w2" {
		t.Errorf("order = %s,%s, want w1,w2", snap[0].Slug, snap[1].Slug)
	}
	if snap[0].ReferencePrice != 97000 {
		t.Errorf("ReferencePrice = %v", snap[0].ReferencePrice)
	}
}

func TestApplySkipsResolvedAndOutOfRange(t *testing.T) {
	r := testRegistry()
	now := time.Now()

	pinned := descriptor("pinned", now.Add(3*time.Minute))
	pinned.UpPrice, pinned.DownPrice = 0.97, 0.02

	closed := descriptor("closed", now.Add(3*time.Minute))
	closed.Closed = true

	r.Apply([]domain.MarketDescriptor{
		pinned,
		closed,
		descriptor("too-old", now.Add(-20*time.Minute)),
		descriptor("too-far", now.Add(40*time.Minute)),
		descriptor("ok", now.Add(3*time.Minute)),
	}, now)

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Slug != "ok" {
		t.Fatalf("snapshot = %+v, want only ok", snap)
	}
}

func TestRediscoveryNeverResetsLatches(t *testing.T) {
	r := testRegistry()
	now := time.Now()
	end := now.Add(2 * time.Minute) // window started 3 minutes ago

	r.Apply([]domain.MarketDescriptor{descriptor("w", end)}, now)
	if !r.LatchOpenPrice("w", domain.Tick{Price: 97000, At: now}) {
		t.Fatal("latch should fire")
	}
	if !r.MarkSignalFired("w") {
		t.Fatal("signal latch should fire")
	}

	// Second discovery round for the same slug.
	r.Apply([]domain.MarketDescriptor{descriptor("w", end)}, now.Add(30*time.Second))

	w, ok := r.Get("w")
	if !ok {
		t.Fatal("window gone")
	}
	if !w.OpenPriceSet || w.OpenPrice != 97000 {
		t.Errorf("open price reset: %+v", w)
	}
	if !w.SignalFired {
		t.Error("signal latch reset")
	}
}

func TestLatchOpenPriceTiming(t *testing.T) {
	r := testRegistry()
	now := time.Now().Truncate(time.Second)
	end := now.Add(300 * time.Second) // window starts exactly now
	r.Apply([]domain.MarketDescriptor{descriptor("w", end)}, now)

	// Before the settle period elapses: no latch.
	if r.LatchOpenPrice("w", domain.Tick{Price: 96990, At: now.Add(9 * time.Second)}) {
		t.Error("latch must wait out the settle period")
	}
	// Exactly at settle_seconds: latch.
	if !r.LatchOpenPrice("w", domain.Tick{Price: 97000, At: now.Add(10 * time.Second)}) {
		t.Error("tick exactly at settle_seconds must latch")
	}
	// Later ticks never move it.
	if r.LatchOpenPrice("w", domain.Tick{Price: 98000, At: now.Add(20 * time.Second)}) {
		t.Error("second latch must not fire")
	}
	w, _ := r.Get("w")
	if w.OpenPrice != 97000 {
		t.Errorf("OpenPrice = %v, want 97000", w.OpenPrice)
	}
}

func TestLatchOpenPriceIgnoresTicksAfterEnd(t *testing.T) {
	r := testRegistry()
	now := time.Now()
	end := now.Add(time.Minute)
	r.Apply([]domain.MarketDescriptor{descriptor("w", end)}, now)

	if r.LatchOpenPrice("w", domain.Tick{Price: 99999, At: end.Add(time.Second)}) {
		t.Error("tick after window end must not latch")
	}
}

func TestMarkSignalFiredOnce(t *testing.T) {
	r := testRegistry()
	now := time.Now()
	r.Apply([]domain.MarketDescriptor{descriptor("w", now.Add(2*time.Minute))}, now)

	if !r.MarkSignalFired("w") {
		t.Fatal("first mark must succeed")
	}
	if r.MarkSignalFired("w") {
		t.Error("second mark must fail")
	}
	if r.MarkSignalFired("unknown") {
		t.Error("unknown slug must fail")
	}
}

func TestEviction(t *testing.T) {
	r := testRegistry()
	now := time.Now()
	end := now.Add(2 * time.Minute)
	r.Apply([]domain.MarketDescriptor{descriptor("w", end)}, now)

	// Just past end: still inside the resolution grace, kept.
	r.Apply(nil, end.Add(time.Minute))
	if _, ok := r.Get("w"); !ok {
		t.Fatal("window evicted before grace elapsed")
	}

	// Past end + grace: evicted.
	r.Apply(nil, end.Add(901*time.Second))
	if _, ok := r.Get("w"); ok {
		t.Error("window must be evicted after grace")
	}
}

type failingDiscoverer struct{ calls int }

func (f *failingDiscoverer) ListWindows(ctx context.Context, asset, dur string) ([]domain.MarketDescriptor, error) {
	f.calls++
	return nil, errors.New("gamma down")
}

func TestStaleAfterConsecutiveFailures(t *testing.T) {
	d := &failingDiscoverer{}
	r := New(testConfig(), d, domain.NewEventLog(), slog.Default())

	for i := 0; i < 2; i++ {
		r.refresh(context.Background())
	}
	if r.Stale() {
		t.Error("two failures must not be stale yet")
	}
	r.refresh(context.Background())
	if !r.Stale() {
		t.Error("three failures must be stale")
	}

	// A successful round clears the counter.
	r.Apply(nil, time.Now())
	if r.Stale() {
		t.Error("success must clear staleness")
	}
}
