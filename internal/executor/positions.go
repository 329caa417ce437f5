// Package executor owns the position lifecycle: entries from signals, the
// exit state machine, and resolution settlement.
package executor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// closedCap bounds the in-memory closed-trade history.
const closedCap = 200

// PositionBook holds open positions keyed by window slug and the closed-trade
// history. All field mutation goes through Update so snapshot readers never
// observe torn writes.
type PositionBook struct {
	mu     sync.RWMutex
	open   map[string]*domain.Position
	closed []domain.ClosedTrade
}

// NewPositionBook returns an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{open: make(map[string]*domain.Position)}
}

// Add inserts a new open position. At most one per window.
func (b *PositionBook) Add(p *domain.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.open[p.Window.Slug]; exists {
		return domain.ErrDuplicatePosition
	}
	b.open[p.Window.Slug] = p
	return nil
}

// Get returns a copy of the position for the given window.
func (b *PositionBook) Get(slug string) (domain.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.open[slug]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Update mutates one position under the write lock. No-op when the slug is
// not open.
func (b *PositionBook) Update(slug string, fn func(*domain.Position)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.open[slug]; ok {
		fn(p)
	}
}

// Remove drops the position for the given window.
func (b *PositionBook) Remove(slug string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, slug)
}

// Open returns copies of all open positions.
func (b *PositionBook) Open() []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, *p)
	}
	return out
}

// OpenCount is the number of open positions.
func (b *PositionBook) OpenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open)
}

// TotalCost sums the open positions' cost.
func (b *PositionBook) TotalCost() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.open {
		total += p.Cost
	}
	return total
}

// RecordClose appends to the bounded closed-trade history.
func (b *PositionBook) RecordClose(t domain.ClosedTrade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, t)
	if len(b.closed) > closedCap {
		b.closed = b.closed[len(b.closed)-closedCap:]
	}
}

// Closed returns a copy of the closed-trade history, oldest first.
func (b *PositionBook) Closed() []domain.ClosedTrade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.ClosedTrade, len(b.closed))
	copy(out, b.closed)
	return out
}

// Notifier receives trade and incident notifications. Implementations must
// not block; nil disables notifications.
type Notifier interface {
	PositionClosed(t domain.ClosedTrade)
	Alert(msg string)
}

// settler finalizes a position: builds the trade record, updates stats and
// risk counters, and fans out notifications. Shared by the exit and
// resolution managers.
type settler struct {
	book     *PositionBook
	risk     *Risk
	stats    *domain.Stats
	events   *domain.EventLog
	notifier Notifier
	feeRate  float64
	logger   *slog.Logger
}

// settle closes the position at the given per-share exit price.
func (s *settler) settle(p domain.Position, exit float64, status domain.ExitStatus, now time.Time) domain.ClosedTrade {
	trade := domain.CloseTrade(&p, exit, s.feeRate, status, now)

	s.book.Remove(p.Window.Slug)
	s.book.RecordClose(trade)
	if s.stats != nil {
		s.stats.RecordTrade(trade)
	}
	if s.risk != nil {
		s.risk.RecordClose(trade, now)
	}
	if s.events != nil {
		kind := domain.EventSell
		if trade.PnL < 0 {
			kind = domain.EventWarn
		}
		s.events.AppendAt(now, kind, trade.WindowSlug+" closed "+string(status))
	}
	if s.notifier != nil {
		s.notifier.PositionClosed(trade)
	}
	s.logger.Info("position closed",
		slog.String("slug", trade.WindowSlug),
		slog.String("status", string(status)),
		slog.Float64("entry", trade.Entry),
		slog.Float64("exit", trade.Exit),
		slog.Float64("pnl", trade.PnL),
	)
	return trade
}
