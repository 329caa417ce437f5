package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// Venue is the executor's view of the CLOB client.
type Venue interface {
	GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)
}

// FeedSource exposes feed liveness to the entry checks.
type FeedSource interface {
	Status() domain.FeedStatus
}

// Config holds entry sizing and admission limits.
type Config struct {
	MaxPositionUSDC     float64
	MaxConcurrent       int
	MaxEntryPrice       float64
	MinTimeToResolution time.Duration
	PassiveEntryPrice   float64
	ArbUSDCPerTrade     float64
}

// Executor turns signals into positions. It is the only creator of
// positions; entries are serialized by the single Run loop, which guarantees
// at most one open position per window.
type Executor struct {
	cfg    Config
	venue  Venue
	feed   FeedSource
	book   *PositionBook
	risk   *Risk
	events *domain.EventLog
	logger *slog.Logger

	signals <-chan domain.Signal
}

// New creates an Executor consuming the given signal stream.
func New(
	cfg Config,
	venue Venue,
	feed FeedSource,
	book *PositionBook,
	risk *Risk,
	signals <-chan domain.Signal,
	events *domain.EventLog,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		cfg:     cfg,
		venue:   venue,
		feed:    feed,
		book:    book,
		risk:    risk,
		events:  events,
		signals: signals,
		logger:  logger.With(slog.String("component", "executor")),
	}
}

// Run consumes signals until ctx ends. A rejected signal is logged and
// dropped; it is never retried.
func (e *Executor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-e.signals:
			if !ok {
				return nil
			}
			if err := e.Enter(ctx, sig, time.Now()); err != nil {
				// Bad credentials will never recover on retry.
				if errors.Is(err, domain.ErrUnauthorized) {
					return fmt.Errorf("executor: venue rejected credentials: %w", err)
				}
				e.reject(sig, err)
			}
		}
	}
}

// Enter runs the admission checks and places the entry order for one signal.
func (e *Executor) Enter(ctx context.Context, sig domain.Signal, now time.Time) error {
	if err := e.risk.AllowEntry(now); err != nil {
		return err
	}
	if e.book.OpenCount() >= e.cfg.MaxConcurrent {
		return fmt.Errorf("executor: concurrency limit reached: %d open", e.cfg.MaxConcurrent)
	}
	if !e.feed.Status().Live {
		return domain.ErrFeedUnavailable
	}
	// Remaining time exactly at the minimum is already too late.
	if sig.Window.EndTime.Sub(now) <= e.cfg.MinTimeToResolution {
		return domain.ErrWindowClosing
	}
	if _, exists := e.book.Get(sig.Window.Slug); exists {
		return domain.ErrDuplicatePosition
	}

	if sig.Kind == domain.SignalBothSides {
		return e.enterArb(ctx, sig, now)
	}
	return e.enterSingle(ctx, sig, now)
}

// enterSingle buys one side of the window, sized to the configured budget.
func (e *Executor) enterSingle(ctx context.Context, sig domain.Signal, now time.Time) error {
	tokenID := sig.Window.TokenID(sig.Side)
	book, err := e.venue.GetBook(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("executor: get book: %w", err)
	}
	ask := book.BestAsk()
	if ask <= 0 {
		return fmt.Errorf("%w: empty ask side", domain.ErrInsufficientLiquidity)
	}
	if ask > e.cfg.MaxEntryPrice {
		return fmt.Errorf("%w: best ask %.3f above %.3f", domain.ErrBookRepriced, ask, e.cfg.MaxEntryPrice)
	}

	price := ask
	orderType := domain.OrderMarket
	if sig.Kind == domain.SignalPassive {
		price = e.cfg.PassiveEntryPrice
		orderType = domain.OrderLimit
	}

	budget := math.Min(e.cfg.MaxPositionUSDC, e.risk.MaxCost())
	shares := math.Floor(budget / price)
	if shares < 1 {
		return fmt.Errorf("%w: budget %.2f buys no shares at %.3f", domain.ErrInsufficientLiquidity, budget, price)
	}
	if orderType == domain.OrderMarket && book.AskDepth(e.cfg.MaxEntryPrice) < shares {
		return fmt.Errorf("%w: %.0f shares wanted, depth short", domain.ErrInsufficientLiquidity, shares)
	}

	ack, err := e.venue.PlaceOrder(ctx, domain.OrderRequest{
		TokenID: tokenID,
		Side:    domain.OrderBuy,
		Price:   price,
		Size:    shares,
		Type:    orderType,
	})
	if err != nil {
		return fmt.Errorf("executor: place buy: %w", err)
	}

	entry, filled := price, shares
	if ack.AvgPrice > 0 {
		entry = ack.AvgPrice
	}
	if ack.FilledSize > 0 {
		filled = ack.FilledSize
	}

	p := &domain.Position{
		ID:         uuid.NewString(),
		Window:     sig.Window,
		Side:       sig.Side,
		TokenID:    tokenID,
		Kind:       sig.Kind,
		EntryPrice: entry,
		Shares:     filled,
		Cost:       entry * filled,
		OpenedAt:   now,
		Mode:       domain.ModeNormal,
		Status:     domain.PositionOpen,
	}
	if err := e.book.Add(p); err != nil {
		e.logger.Error("duplicate position after fill, refusing",
			slog.String("slug", sig.Window.Slug))
		return err
	}
	e.opened(p, now)
	return nil
}

// enterArb buys equal shares of both sides, locking in the ask-sum discount
// to the 1.00 resolution payout.
func (e *Executor) enterArb(ctx context.Context, sig domain.Signal, now time.Time) error {
	upBook, err := e.venue.GetBook(ctx, sig.Window.UpTokenID)
	if err != nil {
		return fmt.Errorf("executor: get up book: %w", err)
	}
	downBook, err := e.venue.GetBook(ctx, sig.Window.DownTokenID)
	if err != nil {
		return fmt.Errorf("executor: get down book: %w", err)
	}
	upAsk, downAsk := upBook.BestAsk(), downBook.BestAsk()
	sum := upAsk + downAsk
	if upAsk <= 0 || downAsk <= 0 {
		return fmt.Errorf("%w: one side empty", domain.ErrInsufficientLiquidity)
	}
	// The edge can vanish between signal and entry.
	if sum >= 1 {
		return fmt.Errorf("%w: asks sum %.3f", domain.ErrBookRepriced, sum)
	}

	shares := math.Floor(e.cfg.ArbUSDCPerTrade / sum)
	if shares < 1 {
		return fmt.Errorf("%w: budget %.2f buys no pairs at %.3f", domain.ErrInsufficientLiquidity, e.cfg.ArbUSDCPerTrade, sum)
	}

	if _, err := e.venue.PlaceOrder(ctx, domain.OrderRequest{
		TokenID: sig.Window.UpTokenID,
		Side:    domain.OrderBuy,
		Price:   upAsk,
		Size:    shares,
		Type:    domain.OrderMarket,
	}); err != nil {
		return fmt.Errorf("executor: place up leg: %w", err)
	}
	if _, err := e.venue.PlaceOrder(ctx, domain.OrderRequest{
		TokenID: sig.Window.DownTokenID,
		Side:    domain.OrderBuy,
		Price:   downAsk,
		Size:    shares,
		Type:    domain.OrderMarket,
	}); err != nil {
		// Unwind the filled leg rather than carry an unintended one-sided bet.
		e.unwind(ctx, sig.Window.UpTokenID, shares)
		return fmt.Errorf("executor: place down leg: %w", err)
	}

	p := &domain.Position{
		ID:            uuid.NewString(),
		Window:        sig.Window,
		Side:          domain.SideUp,
		TokenID:       sig.Window.UpTokenID,
		Kind:          domain.SignalBothSides,
		EntryPrice:    sum, // combined cost per share pair
		Shares:        shares,
		Cost:          shares * sum,
		OpenedAt:      now,
		Mode:          domain.ModeNormal,
		Status:        domain.PositionOpen,
		ArbPairShares: shares,
		ArbPairCost:   shares * downAsk,
	}
	if err := e.book.Add(p); err != nil {
		e.logger.Error("duplicate position after fill, refusing",
			slog.String("slug", sig.Window.Slug))
		return err
	}
	e.opened(p, now)
	return nil
}

// unwind sells back a leg after its pair failed to fill.
func (e *Executor) unwind(ctx context.Context, tokenID string, shares float64) {
	if _, err := e.venue.PlaceOrder(ctx, domain.OrderRequest{
		TokenID: tokenID,
		Side:    domain.OrderSell,
		Size:    shares,
		Type:    domain.OrderMarket,
	}); err != nil {
		e.logger.Error("leg unwind failed, manual intervention needed",
			slog.String("token_id", tokenID),
			slog.Float64("shares", shares),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) opened(p *domain.Position, now time.Time) {
	if e.events != nil {
		e.events.AppendAt(now, domain.EventBuy,
			fmt.Sprintf("%s %s %.0f @ %.3f", p.Window.Slug, p.Side, p.Shares, p.EntryPrice))
	}
	e.logger.Info("position opened",
		slog.String("slug", p.Window.Slug),
		slog.String("side", string(p.Side)),
		slog.String("strategy", string(p.Kind)),
		slog.Float64("entry", p.EntryPrice),
		slog.Float64("shares", p.Shares),
		slog.Float64("cost", p.Cost),
	)
}

// reject records a dropped signal. Duplicate positions are invariant
// violations and log at error; the rest are routine admissions failures.
func (e *Executor) reject(sig domain.Signal, err error) {
	level := slog.LevelWarn
	if errors.Is(err, domain.ErrDuplicatePosition) {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "signal dropped",
		slog.String("signal_id", sig.ID),
		slog.String("slug", sig.Window.Slug),
		slog.String("error", err.Error()),
	)
	if e.events != nil {
		e.events.Append(domain.EventWarn, sig.Window.Slug+": "+err.Error())
	}
}
