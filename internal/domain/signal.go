package domain

import "time"

// SignalKind identifies which predicate produced an entry signal.
type SignalKind string

const (
	SignalSpike     SignalKind = "spike"
	SignalPassive   SignalKind = "passive"
	SignalLateEntry SignalKind = "late_entry"
	SignalBothSides SignalKind = "both_sides"
)

// Signal asserts that the current price trajectory implies a directional
// outcome with actionable edge on one window. At most one fires per
// (window, strategy).
type Signal struct {
	ID       string
	Kind     SignalKind
	Window   WindowRef
	Side     Side
	AtPrice  float64 // spot price when the predicate fired
	Reason   string
	FiredAt  time.Time
	Metadata map[string]any
}
