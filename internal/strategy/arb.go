package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// ArbConfig holds the both-sides predicate's threshold.
type ArbConfig struct {
	MaxSum float64
}

// Arb fires when the two sides' best asks sum below MaxSum, locking in
// 1 - sum per share when both legs fill and the position is held to
// resolution. The signal carries both asks; the executor buys both legs.
type Arb struct {
	cfg   ArbConfig
	books BookSource
}

// NewArb creates the both-sides predicate.
func NewArb(cfg ArbConfig, books BookSource) *Arb {
	return &Arb{cfg: cfg, books: books}
}

func (a *Arb) Name() string { return "arb" }

func (a *Arb) Evaluate(ctx context.Context, w domain.Window, _ time.Time) (domain.Signal, bool) {
	up, err := a.books.GetBook(ctx, w.UpTokenID)
	if err != nil {
		return domain.Signal{}, false
	}
	down, err := a.books.GetBook(ctx, w.DownTokenID)
	if err != nil {
		return domain.Signal{}, false
	}

	upAsk, downAsk := up.BestAsk(), down.BestAsk()
	if upAsk <= 0 || downAsk <= 0 {
		return domain.Signal{}, false
	}
	sum := upAsk + downAsk
	if sum >= a.cfg.MaxSum {
		return domain.Signal{}, false
	}

	return domain.Signal{
		Kind:    domain.SignalBothSides,
		Window:  w.Ref(),
		Side:    domain.SideUp, // primary leg; the executor buys both
		AtPrice: upAsk,
		Reason:  fmt.Sprintf("asks sum %.3f, edge %.3f/share", sum, 1-sum),
		Metadata: map[string]any{
			"up_ask":   upAsk,
			"down_ask": downAsk,
			"ask_sum":  sum,
		},
	}, true
}
