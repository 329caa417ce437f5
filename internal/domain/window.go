package domain

import "time"

// WindowDuration is the fixed length of a rolling binary market window.
const WindowDuration = 300 * time.Second

// WindowPhase describes where a window sits in its lifecycle. It is derived
// from (now, end time, open price) and never stored.
type WindowPhase string

const (
	PhaseWaiting  WindowPhase = "waiting"
	PhaseSettling WindowPhase = "settling"
	PhaseActive   WindowPhase = "active"
	PhaseClosing  WindowPhase = "closing"
	PhaseEnded    WindowPhase = "ended"
)

// Side is the outcome side of a binary window.
type Side string

const (
	SideUp   Side = "Up"
	SideDown Side = "Down"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// Window is one rolling binary market tracked by the registry. The registry
// is the sole owner of OpenPrice and the per-strategy fired flags; discovery
// refreshes only update derived metadata.
type Window struct {
	Slug           string    `json:"slug"`
	Question       string    `json:"question"`
	UpTokenID      string    `json:"up_token_id"`
	DownTokenID    string    `json:"down_token_id"`
	EndTime        time.Time `json:"end_time"`
	ReferencePrice float64   `json:"reference_price"` // strike parsed from the question, 0 if absent

	// OpenPrice is the first spot tick observed at least SettleSeconds after
	// the window start. Once set it is immutable.
	OpenPrice    float64   `json:"open_price"`
	OpenPriceSet bool      `json:"open_price_set"`
	OpenPriceAt  time.Time `json:"open_price_at"`

	SignalFired bool `json:"signal_fired"`
}

// StartTime is the beginning of the window.
func (w *Window) StartTime() time.Time {
	return w.EndTime.Add(-WindowDuration)
}

// TimeRemaining is the time until resolution, negative once ended.
func (w *Window) TimeRemaining(now time.Time) time.Duration {
	return w.EndTime.Sub(now)
}

// Phase derives the lifecycle phase at the given instant. settle is how long
// after the window start the open-price latch arms; closing is the no-entry
// cutoff before the end.
func (w *Window) Phase(now time.Time, settle, closing time.Duration) WindowPhase {
	switch {
	case !now.Before(w.EndTime):
		return PhaseEnded
	case w.EndTime.Sub(now) <= closing:
		return PhaseClosing
	case now.Before(w.StartTime()):
		return PhaseWaiting
	case w.OpenPriceSet && now.Sub(w.StartTime()) >= settle:
		return PhaseActive
	default:
		return PhaseSettling
	}
}

// TokenID returns the venue instrument id for the given side.
func (w *Window) TokenID(side Side) string {
	if side == SideUp {
		return w.UpTokenID
	}
	return w.DownTokenID
}

// WindowRef is the per-position snapshot of window identity. Positions keep a
// copy so they survive registry eviction without dangling references.
type WindowRef struct {
	Slug        string    `json:"slug"`
	EndTime     time.Time `json:"end_time"`
	UpTokenID   string    `json:"up_token_id"`
	DownTokenID string    `json:"down_token_id"`
}

// TokenID returns the venue instrument id for the given side.
func (r WindowRef) TokenID(side Side) string {
	if side == SideUp {
		return r.UpTokenID
	}
	return r.DownTokenID
}

// Ref snapshots the window's identity.
func (w *Window) Ref() WindowRef {
	return WindowRef{
		Slug:        w.Slug,
		EndTime:     w.EndTime,
		UpTokenID:   w.UpTokenID,
		DownTokenID: w.DownTokenID,
	}
}
