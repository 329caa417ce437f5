package domain

import "context"

// SnapshotBus fans published state snapshots out to observers. Publishing
// never blocks a mutator; slow subscribers drop messages.
type SnapshotBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
