package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// PassiveConfig holds the fixed-side limit predicate's parameters.
type PassiveConfig struct {
	EntryPrice float64
	Side       domain.Side
}

// Passive fires unconditionally on the first active evaluation of each
// window, requesting a resting limit buy on the configured side. The
// per-window fired latch in the engine makes "first" stick.
type Passive struct {
	cfg PassiveConfig
}

// NewPassive creates the passive limit predicate.
func NewPassive(cfg PassiveConfig) *Passive {
	if cfg.Side == "" {
		cfg.Side = domain.SideUp
	}
	return &Passive{cfg: cfg}
}

func (p *Passive) Name() string { return "passive" }

func (p *Passive) Evaluate(_ context.Context, w domain.Window, _ time.Time) (domain.Signal, bool) {
	return domain.Signal{
		Kind:    domain.SignalPassive,
		Window:  w.Ref(),
		Side:    p.cfg.Side,
		AtPrice: w.OpenPrice,
		Reason:  fmt.Sprintf("resting %s limit at %.2f", p.cfg.Side, p.cfg.EntryPrice),
		Metadata: map[string]any{
			"limit_price": p.cfg.EntryPrice,
		},
	}, true
}
