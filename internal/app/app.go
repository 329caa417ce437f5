// Package app wires the bot's components together and owns the process
// lifecycle: the price feed, window registry, strategy engine, executor, exit
// and resolution loops, state publisher, and the optional dashboard server.
package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spikebot/internal/config"
	"github.com/alanyoungcy/spikebot/internal/publisher"
	"github.com/alanyoungcy/spikebot/internal/server"
	"github.com/alanyoungcy/spikebot/internal/server/handler"
	"github.com/alanyoungcy/spikebot/internal/server/ws"
)

// shutdownGrace bounds both the HTTP drain and the final telemetry flush.
const shutdownGrace = 10 * time.Second

// App is the root application object.
type App struct {
	cfg      *config.Config
	headless bool
	logger   *slog.Logger
}

// New creates an App. headless disables the dashboard server regardless of
// the server configuration.
func New(cfg *config.Config, headless bool, logger *slog.Logger) *App {
	return &App{
		cfg:      cfg,
		headless: headless,
		logger:   logger.With(slog.String("component", "app")),
	}
}

// Run wires the components, starts every task, and blocks until the context
// is cancelled or a task fails. Cancellation stops the tick source first so
// in-flight positions settle before telemetry goes down.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("strategy", a.cfg.Strategy),
		slog.Bool("dry_run", a.cfg.DryRun),
		slog.String("symbol", a.cfg.Feed.Symbol),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.Feed.Run(gctx) })
	g.Go(func() error { return deps.Registry.Run(gctx) })
	g.Go(func() error { return deps.Engine.Run(gctx) })
	g.Go(func() error { return deps.Executor.Run(gctx) })
	g.Go(func() error { return deps.Exit.Run(gctx) })
	g.Go(func() error { return deps.Resolution.Run(gctx) })
	g.Go(func() error { return deps.Publisher.Run(gctx) })

	// Close the feed as soon as shutdown begins; the engine drains its
	// remaining ticks and the downstream loops stop on their own contexts.
	g.Go(func() error {
		<-gctx.Done()
		deps.Feed.Close()
		return nil
	})

	if a.cfg.Server.Enabled && !a.headless {
		a.startServer(gctx, g, deps)
	}

	runErr := g.Wait()

	// One last snapshot so dashboards and the Redis channel see the final
	// book state.
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	deps.Publisher.Flush(flushCtx)
	cancel()

	a.logger.Info("stopped")
	return runErr
}

// startServer attaches the dashboard HTTP/WS server to the task group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	mode := "live"
	if a.cfg.DryRun {
		mode = "dry-run"
	}

	hub := ws.NewHub(deps.Bus, publisher.Channel, a.logger)
	g.Go(func() error { return hub.Run(ctx) })

	state := handler.NewStateHandler(deps.Publisher, mode, a.cfg.Strategy, time.Now())
	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, state, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})
}
