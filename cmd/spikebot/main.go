// Command spikebot is the trading bot entry point. It loads and validates the
// configuration, sets up structured logging and signal handling, and runs the
// application until interrupted.
//
// Exit codes: 0 on clean shutdown, 1 on configuration or runtime failure,
// 2 when the venue rejects the API credentials.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/spikebot/internal/app"
	"github.com/alanyoungcy/spikebot/internal/config"
	"github.com/alanyoungcy/spikebot/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	headless := flag.Bool("headless", false, "disable the dashboard HTTP/WS server")
	dryRun := flag.Bool("dry-run", false, "force dry-run mode (no real orders)")
	live := flag.Bool("live", false, "force live trading (overrides dry_run config)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *dryRun && *live {
		fmt.Fprintln(os.Stderr, "fatal: --dry-run and --live are mutually exclusive")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Flags win over the file and the environment.
	if *dryRun {
		cfg.DryRun = true
	}
	if *live {
		cfg.DryRun = false
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, *headless, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		if errors.Is(err, domain.ErrUnauthorized) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	logger.Info("shut down cleanly")
}

// logLevel maps the configured level name to a slog level.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
