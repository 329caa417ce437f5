package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// SpikeConfig holds the primary predicate's thresholds.
type SpikeConfig struct {
	MoveUSD   float64
	WindowSec float64
}

// Spike fires when the spot price moves at least MoveUSD inside the lookback
// deque. Direction follows the sign of the move.
type Spike struct {
	cfg  SpikeConfig
	hist *History
}

// NewSpike creates the spike predicate over a shared tick history.
func NewSpike(cfg SpikeConfig, hist *History) *Spike {
	return &Spike{cfg: cfg, hist: hist}
}

func (s *Spike) Name() string { return "spike" }

// Evaluate compares the newest and oldest tick in the lookback.
func (s *Spike) Evaluate(_ context.Context, w domain.Window, now time.Time) (domain.Signal, bool) {
	pNow, pThen, ok := s.hist.Delta(now)
	if !ok {
		return domain.Signal{}, false
	}
	move := pNow - pThen
	if math.Abs(move) < s.cfg.MoveUSD {
		return domain.Signal{}, false
	}

	side := domain.SideUp
	if move < 0 {
		side = domain.SideDown
	}
	return domain.Signal{
		Kind:    domain.SignalSpike,
		Window:  w.Ref(),
		Side:    side,
		AtPrice: pNow,
		Reason:  fmt.Sprintf("spot moved %+.2f in %.0fs", move, s.cfg.WindowSec),
		Metadata: map[string]any{
			"p_then": pThen,
			"p_now":  pNow,
			"move":   move,
		},
	}, true
}
