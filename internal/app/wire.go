package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/spikebot/internal/bus"
	"github.com/alanyoungcy/spikebot/internal/cache/redis"
	"github.com/alanyoungcy/spikebot/internal/config"
	"github.com/alanyoungcy/spikebot/internal/crypto"
	"github.com/alanyoungcy/spikebot/internal/domain"
	"github.com/alanyoungcy/spikebot/internal/executor"
	"github.com/alanyoungcy/spikebot/internal/feed"
	"github.com/alanyoungcy/spikebot/internal/notify"
	"github.com/alanyoungcy/spikebot/internal/platform/polymarket"
	"github.com/alanyoungcy/spikebot/internal/publisher"
	"github.com/alanyoungcy/spikebot/internal/registry"
	"github.com/alanyoungcy/spikebot/internal/strategy"
)

// closingCutoff is how long before end_time a window stops accepting signals.
const closingCutoff = 30 * time.Second

// Dependencies bundles every long-running component the application runs. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Feed       *feed.PriceFeed
	Registry   *registry.Registry
	History    *strategy.History
	Engine     *strategy.Engine
	Book       *executor.PositionBook
	Executor   *executor.Executor
	Exit       *executor.ExitManager
	Resolution *executor.Resolution
	Publisher  *publisher.Publisher
	Bus        *bus.Memory
	Notifier   *notify.Notifier

	Events *domain.EventLog
	Stats  *domain.Stats
}

// Wire constructs the full component graph from the configuration and returns
// it together with a cleanup function for the shared clients.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	events := domain.NewEventLog()
	stats := domain.NewStats()
	settle := time.Duration(cfg.Spike.SettleSeconds) * time.Second

	// Venue clients. The CLOB client signs nothing in dry-run mode but the
	// auth material is attached unconditionally so a --live restart needs no
	// rewiring.
	gamma := polymarket.NewGammaClient(cfg.Venue.GammaHost, cfg.Venue.RequestTimeout.Duration)
	auth := &crypto.HMACAuth{
		Key:        cfg.Venue.ApiKey,
		Secret:     cfg.Venue.ApiSecret,
		Passphrase: cfg.Venue.Passphrase,
		Address:    cfg.Venue.Address,
	}
	clob := polymarket.NewClobClient(cfg.Venue.ClobHost, auth, cfg.DryRun, cfg.Venue.RequestTimeout.Duration)

	priceFeed := feed.New(feed.Config{
		Symbol:     cfg.Feed.Symbol,
		Endpoints:  cfg.Feed.WSEndpoints,
		RestHost:   cfg.Feed.RestHost,
		StaleAfter: cfg.Feed.StaleAfter.Duration,
		DeadAfter:  cfg.Feed.DeadAfter.Duration,
	}, logger)

	reg := registry.New(registry.Config{
		AssetTag:        cfg.Venue.AssetTag,
		DurationTag:     cfg.Venue.DurationTag,
		RefreshInterval: cfg.Registry.RefreshInterval.Duration,
		ResolutionGrace: cfg.Registry.ResolutionGrace.Duration,
		Lookahead:       cfg.Registry.Lookahead.Duration,
		SettleSeconds:   settle,
		ClosingCutoff:   closingCutoff,
	}, gamma, events, logger)

	hist := strategy.NewHistory(time.Duration(cfg.Spike.WindowSec * float64(time.Second)))
	strat, err := buildStrategy(cfg, hist, clob, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	engine := strategy.NewEngine(strategy.EngineConfig{
		PollInterval:  cfg.Spike.PollInterval.Duration,
		Debounce:      cfg.Spike.Debounce.Duration,
		SettleSeconds: settle,
		ClosingCutoff: closingCutoff,
	}, strat, reg, hist, priceFeed.Ticks(), events, stats, logger)

	notifier := buildNotifier(cfg, logger)

	book := executor.NewPositionBook()
	risk := executor.NewRisk(executor.RiskConfig{
		DailyLossLimitUSDC:  cfg.Risk.DailyLossLimitUSDC,
		MaxLossPerTradeUSDC: cfg.Risk.MaxLossPerTradeUSDC,
		LossesToPause:       cfg.Risk.LossesToPause,
		PauseAfterStreak:    cfg.Risk.PauseAfterStreak.Duration,
		HardStopPct:         cfg.Exit.HardStopPct,
	}, stats, logger)

	exec := executor.New(executor.Config{
		MaxPositionUSDC:     cfg.Risk.MaxPositionUSDC,
		MaxConcurrent:       cfg.Risk.MaxConcurrent,
		MaxEntryPrice:       cfg.Risk.MaxEntryPrice,
		MinTimeToResolution: cfg.Risk.MinTimeToResolution.Duration,
		PassiveEntryPrice:   cfg.Passive.EntryPrice,
		ArbUSDCPerTrade:     cfg.Arb.USDCPerTrade,
	}, clob, priceFeed, book, risk, engine.Signals(), events, logger)

	exit := executor.NewExitManager(executor.ExitConfig{
		ProfitTargetPct:    cfg.Exit.ProfitTargetPct,
		MoonbagPct:         cfg.Exit.MoonbagPct,
		DrawdownTriggerPct: cfg.Exit.DrawdownTriggerPct,
		ProtectionExitPct:  cfg.Exit.ProtectionExitPct,
		HardStopPct:        cfg.Exit.HardStopPct,
		LateHardSell:       cfg.Late.HardSellPrice,
		PassiveSellPrice:   cfg.Passive.SellPrice,
		EvalInterval:       cfg.Exit.EvalInterval.Duration,
	}, clob, book, risk, stats, events, notifier, cfg.Risk.FeeRate, logger)

	resolution := executor.NewResolution(executor.ResolutionConfig{
		Grace: cfg.Registry.ResolutionGrace.Duration,
	}, gamma, book, risk, stats, events, notifier, cfg.Risk.FeeRate, logger)

	// Snapshot fan-out: the in-process bus always, Redis pub/sub when
	// configured so external dashboards can subscribe too.
	memBus := bus.NewMemory()
	buses := []domain.SnapshotBus{memBus}
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		buses = append(buses, redis.NewSnapshotBus(redisClient))
	}

	pub := publisher.New(publisher.Config{
		Strategy:      cfg.Strategy,
		DryRun:        cfg.DryRun,
		SettleSeconds: settle,
		ClosingCutoff: closingCutoff,
	}, priceFeed, reg, book, stats, events, hist, logger, buses...)

	// Every state mutation of interest also appends an event, so the event
	// log doubles as the publisher's mutation hook.
	events.OnAppend(pub.Notify)

	return &Dependencies{
		Feed:       priceFeed,
		Registry:   reg,
		History:    hist,
		Engine:     engine,
		Book:       book,
		Executor:   exec,
		Exit:       exit,
		Resolution: resolution,
		Publisher:  pub,
		Bus:        memBus,
		Notifier:   notifier,
		Events:     events,
		Stats:      stats,
	}, cleanup, nil
}

// buildStrategy selects the signal predicate named by cfg.Strategy.
func buildStrategy(cfg *config.Config, hist *strategy.History, books strategy.BookSource, logger *slog.Logger) (strategy.Strategy, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "spike":
		return strategy.NewSpike(strategy.SpikeConfig{
			MoveUSD:   cfg.Spike.MoveUSD,
			WindowSec: cfg.Spike.WindowSec,
		}, hist), nil
	case "passive":
		side := domain.SideUp
		if strings.EqualFold(cfg.Passive.Side, "down") {
			side = domain.SideDown
		}
		return strategy.NewPassive(strategy.PassiveConfig{
			EntryPrice: cfg.Passive.EntryPrice,
			Side:       side,
		}), nil
	case "late":
		return strategy.NewLate(strategy.LateConfig{
			EntryPrice:            cfg.Late.EntryPrice,
			ChoppyCutoff:          cfg.Late.ChoppyCutoff,
			TrackingStart:         time.Duration(cfg.Late.TrackingStartSec) * time.Second,
			Decision:              time.Duration(cfg.Late.DecisionSec) * time.Second,
			ManipulationMarginUSD: cfg.Late.ManipulationMarginUSD,
		}, books, hist, logger), nil
	case "arb":
		return strategy.NewArb(strategy.ArbConfig{MaxSum: cfg.Arb.MaxSum}, books), nil
	default:
		return nil, fmt.Errorf("wire: unknown strategy %q", cfg.Strategy)
	}
}

// buildNotifier assembles the configured notification channels. With none
// configured the notifier is a no-op.
func buildNotifier(cfg *config.Config, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscord(cfg.Notify.DiscordWebhookURL))
	}
	return notify.New(senders, logger)
}
