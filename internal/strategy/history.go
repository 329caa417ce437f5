package strategy

import (
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

const (
	// historyCap bounds the sampled price history exposed to the dashboard.
	historyCap = 120

	// sampleEvery is the sampling cadence of the dashboard history.
	sampleEvery = time.Second
)

// History keeps two views of the tick stream: a short deque covering the
// spike lookback, and a 1/s sampled series for the dashboard. Both are
// bounded; ticks older than the lookback are discarded on every Record.
type History struct {
	lookback time.Duration

	mu         sync.RWMutex
	deque      []domain.Tick
	samples    []domain.Tick
	lastSample time.Time
}

// NewHistory creates a History with the given spike lookback.
func NewHistory(lookback time.Duration) *History {
	if lookback <= 0 {
		lookback = 3 * time.Second
	}
	return &History{lookback: lookback}
}

// Record appends a tick, trims the deque to the lookback, and samples the
// dashboard series at most once per second.
func (h *History) Record(t domain.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deque = append(h.deque, t)
	cutoff := t.At.Add(-h.lookback)
	i := 0
	for i < len(h.deque) && h.deque[i].At.Before(cutoff) {
		i++
	}
	h.deque = h.deque[i:]

	if t.At.Sub(h.lastSample) >= sampleEvery {
		h.samples = append(h.samples, t)
		if len(h.samples) > historyCap {
			h.samples = h.samples[len(h.samples)-historyCap:]
		}
		h.lastSample = t.At
	}
}

// Delta returns the newest and oldest price inside the lookback ending at
// now. ok is false until at least two ticks span the deque.
func (h *History) Delta(now time.Time) (pNow, pThen float64, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.deque) < 2 {
		return 0, 0, false
	}
	newest := h.deque[len(h.deque)-1]
	if now.Sub(newest.At) > h.lookback {
		return 0, 0, false
	}
	return newest.Price, h.deque[0].Price, true
}

// Latest returns the most recent tick.
func (h *History) Latest() (domain.Tick, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.deque) == 0 {
		return domain.Tick{}, false
	}
	return h.deque[len(h.deque)-1], true
}

// Samples returns a copy of the 1/s sampled series, oldest first.
func (h *History) Samples() []domain.Tick {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Tick, len(h.samples))
	copy(out, h.samples)
	return out
}
