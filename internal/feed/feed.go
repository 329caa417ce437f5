// Package feed maintains the live spot price from the exchange trade stream.
package feed

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
	"github.com/alanyoungcy/spikebot/internal/platform/binance"
)

const (
	// tickBuffer is the capacity of the published tick channel. The signal
	// depends on deltas over a short buffer, so dropping ticks under
	// backpressure is harmless.
	tickBuffer = 1024

	// maxBackoff caps the reconnect delay.
	maxBackoff = 30 * time.Second

	// healthyAfter is how long a connection must live before the backoff
	// attempt counter resets.
	healthyAfter = 10 * time.Second
)

// Config holds the feed parameters.
type Config struct {
	Symbol     string
	Endpoints  []string // tried in round-robin order
	RestHost   string
	StaleAfter time.Duration
	DeadAfter  time.Duration
}

// PriceFeed supervises a reconnecting connection to the exchange trade
// stream, publishes ticks on a channel, and exposes the latest price with a
// liveness flag.
type PriceFeed struct {
	cfg    Config
	rest   *binance.RestClient
	logger *slog.Logger

	ticks chan domain.Tick

	mu           sync.RWMutex
	latest       domain.Tick
	seeded       bool
	lastGoodRead time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a PriceFeed. Run must be called to start it.
func New(cfg Config, logger *slog.Logger) *PriceFeed {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Second
	}
	if cfg.DeadAfter <= 0 {
		cfg.DeadAfter = 60 * time.Second
	}
	return &PriceFeed{
		cfg:    cfg,
		rest:   binance.NewRestClient(cfg.RestHost),
		logger: logger.With(slog.String("component", "price_feed")),
		ticks:  make(chan domain.Tick, tickBuffer),
		done:   make(chan struct{}),
	}
}

// Ticks is the published tick stream. Slow consumers lose ticks rather than
// blocking the reader.
func (f *PriceFeed) Ticks() <-chan domain.Tick { return f.ticks }

// Run connects and pumps trades until ctx is cancelled. Reconnects with
// exponential backoff and jitter, rotating through the configured endpoints.
func (f *PriceFeed) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	default:
	}

	f.seed(ctx)

	attempt := 0
	endpoint := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		url := f.cfg.Endpoints[endpoint%len(f.cfg.Endpoints)]
		connectedAt := time.Now()
		err := f.runConnection(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-f.done:
			return nil
		default:
		}

		if time.Since(connectedAt) >= healthyAfter {
			attempt = 0
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.String("endpoint", url),
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt),
		)

		endpoint++
		delay := backoff(attempt)
		attempt++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
	}
}

// runConnection dials one endpoint and pumps trades until the socket errors
// or the context ends.
func (f *PriceFeed) runConnection(ctx context.Context, endpoint string) error {
	client := binance.NewStreamClient(endpoint, f.cfg.Symbol)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	f.logger.Info("stream connected", slog.String("endpoint", endpoint))

	// Tear the socket down from the outside when the run is cancelled so the
	// blocking read returns promptly.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	for {
		tick, err := client.ReadTick(f.cfg.StaleAfter)
		if err != nil {
			return err
		}
		f.publish(tick)
	}
}

// seed fetches the current price over REST so consumers have a value before
// the stream's first trade. Best effort.
func (f *PriceFeed) seed(ctx context.Context) {
	seedCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	price, err := f.rest.TickerPrice(seedCtx, f.cfg.Symbol)
	if err != nil {
		f.logger.Warn("price seed failed", slog.String("error", err.Error()))
		return
	}
	f.mu.Lock()
	if !f.seeded {
		f.latest = domain.Tick{Price: price, At: time.Now()}
		f.seeded = true
	}
	f.mu.Unlock()
	f.logger.Info("price seeded", slog.Float64("price", price))
}

// publish records the tick as latest and offers it on the channel.
func (f *PriceFeed) publish(tick domain.Tick) {
	now := time.Now()
	f.mu.Lock()
	f.latest = tick
	f.seeded = true
	f.lastGoodRead = now
	f.mu.Unlock()

	select {
	case f.ticks <- tick:
	default:
	}
}

// Status returns the latest price together with the liveness flag.
func (f *PriceFeed) Status() domain.FeedStatus {
	return f.statusAt(time.Now())
}

func (f *PriceFeed) statusAt(now time.Time) domain.FeedStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.FeedStatus{
		Price:    f.latest.Price,
		LastTick: f.latest.At,
		Live:     !f.lastGoodRead.IsZero() && now.Sub(f.lastGoodRead) <= f.cfg.StaleAfter,
	}
}

// Unavailable reports whether the stream has delivered nothing for longer
// than the configured dead interval. The strategy refuses new entries while
// this holds.
func (f *PriceFeed) Unavailable() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastGoodRead.IsZero() || time.Since(f.lastGoodRead) > f.cfg.DeadAfter
}

// Close stops the feed.
func (f *PriceFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// backoff computes min(2^attempt, 30s) plus up to a second of jitter.
func backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int63n(int64(time.Second)))
}
