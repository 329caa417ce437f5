package strategy

import (
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

func TestHistoryDelta(t *testing.T) {
	h := NewHistory(3 * time.Second)
	base := time.Now()

	if _, _, ok := h.Delta(base); ok {
		t.Error("empty history must not report a delta")
	}

	h.Record(domain.Tick{Price: 97000, At: base})
	h.Record(domain.Tick{Price: 97010, At: base.Add(time.Second)})
	h.Record(domain.Tick{Price: 97022, At: base.Add(2 * time.Second)})

	pNow, pThen, ok := h.Delta(base.Add(2 * time.Second))
	if !ok {
		t.Fatal("delta should be available")
	}
	if pNow != 97022 || pThen != 97000 {
		t.Errorf("delta = (%v, %v), want (97022, 97000)", pNow, pThen)
	}
}

func TestHistoryTrimsLookback(t *testing.T) {
	h := NewHistory(3 * time.Second)
	base := time.Now()

	h.Record(domain.Tick{Price: 96950, At: base})
	h.Record(domain.Tick{Price: 97000, At: base.Add(5 * time.Second)})
	h.Record(domain.Tick{Price: 97005, At: base.Add(6 * time.Second)})

	// The first tick fell out of the lookback; p_then is the second.
	_, pThen, ok := h.Delta(base.Add(6 * time.Second))
	if !ok || pThen != 97000 {
		t.Errorf("pThen = %v ok = %v, want 97000", pThen, ok)
	}
}

func TestHistoryDeltaGoesStale(t *testing.T) {
	h := NewHistory(3 * time.Second)
	base := time.Now()
	h.Record(domain.Tick{Price: 97000, At: base})
	h.Record(domain.Tick{Price: 97030, At: base.Add(time.Second)})

	if _, _, ok := h.Delta(base.Add(10 * time.Second)); ok {
		t.Error("delta must go stale once the newest tick leaves the lookback")
	}
}

func TestHistorySampling(t *testing.T) {
	h := NewHistory(3 * time.Second)
	base := time.Now()

	// Ten ticks per second for three minutes; samples stay at 1/s and capped.
	for i := 0; i < 180*10; i++ {
		h.Record(domain.Tick{
			Price: 97000 + float64(i),
			At:    base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
	}

	samples := h.Samples()
	if len(samples) != historyCap {
		t.Fatalf("samples = %d, want %d", len(samples), historyCap)
	}
	for i := 1; i < len(samples); i++ {
		if gap := samples[i].At.Sub(samples[i-1].At); gap < sampleEvery {
			t.Fatalf("sample gap %s below cadence at index %d", gap, i)
		}
	}

	latest, ok := h.Latest()
	if !ok || latest.Price != 97000+1799 {
		t.Errorf("latest = %+v", latest)
	}
}
