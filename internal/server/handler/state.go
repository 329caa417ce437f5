package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/spikebot/internal/publisher"
)

// StateSource builds the current state snapshot on demand. Satisfied by the
// publisher.
type StateSource interface {
	Build(now time.Time) publisher.Snapshot
}

// StateHandler serves the dashboard's read-only endpoints.
type StateHandler struct {
	src       StateSource
	mode      string
	strategy  string
	startedAt time.Time
}

// NewStateHandler creates a StateHandler. mode is "dry-run" or "live".
func NewStateHandler(src StateSource, mode, strategy string, startedAt time.Time) *StateHandler {
	return &StateHandler{
		src:       src,
		mode:      mode,
		strategy:  strategy,
		startedAt: startedAt,
	}
}

// Health responds with a liveness probe.
// GET /api/health
func (h *StateHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status responds with the run identity and a few live gauges.
// GET /api/status
func (h *StateHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.src.Build(time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"strategy":       h.strategy,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"feed_live":      snap.Feed.Live,
		"spot_price":     snap.Feed.Price,
		"registry_stale": snap.RegistryStale,
		"open_positions": len(snap.Positions),
		"windows":        len(snap.Windows),
		"total_pnl":      snap.Stats.TotalPnL,
	})
}

// State responds with the full snapshot, identical in shape to the WS stream.
// GET /api/state
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.src.Build(time.Now()))
}
