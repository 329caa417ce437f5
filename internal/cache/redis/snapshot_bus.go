package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SnapshotBus implements domain.SnapshotBus on Redis Pub/Sub, letting
// external dashboards observe the bot's state snapshots.
type SnapshotBus struct {
	rdb *redis.Client
}

// NewSnapshotBus creates a SnapshotBus backed by the given Client.
func NewSnapshotBus(c *Client) *SnapshotBus {
	return &SnapshotBus{rdb: c.rdb}
}

// Publish sends a snapshot payload to a Pub/Sub channel.
func (sb *SnapshotBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a read-only channel of snapshot payloads. The
// subscription closes with the context, closing the returned channel.
func (sb *SnapshotBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.rdb.Subscribe(ctx, channel)

	// Wait for the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
