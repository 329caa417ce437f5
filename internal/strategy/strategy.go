// Package strategy holds the entry predicates and the engine that runs one
// of them over the tracked windows.
package strategy

import (
	"context"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// BookSource fetches venue order books. Satisfied by the CLOB client.
type BookSource interface {
	GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error)
}

// Strategy evaluates one active window and proposes at most one entry
// signal. The engine owns the per-window fired latch and the global
// debounce; Evaluate is free of both concerns.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, w domain.Window, now time.Time) (domain.Signal, bool)
}
