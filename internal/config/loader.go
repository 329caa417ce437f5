package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when the file does
// not exist), merges it on top of the built-in defaults, applies environment
// variable overrides, and returns the final Config. The returned Config has
// NOT been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites the
// corresponding Config fields when a variable is set (i.e. not empty). This
// lets operators inject secrets and tune thresholds at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.Symbol, "SYMBOL")
	setStringSlice(&cfg.Feed.WSEndpoints, "FEED_WS_URLS")
	setStr(&cfg.Feed.RestHost, "FEED_REST_HOST")

	// ── Venue ──
	setStr(&cfg.Venue.GammaHost, "GAMMA_BASE_URL")
	setStr(&cfg.Venue.ClobHost, "CLOB_BASE_URL")
	setStr(&cfg.Venue.AssetTag, "ASSET_TAG")
	setStr(&cfg.Venue.DurationTag, "DURATION_TAG")
	setStr(&cfg.Venue.ApiKey, "VENUE_API_KEY")
	setStr(&cfg.Venue.ApiSecret, "VENUE_API_SECRET")
	setStr(&cfg.Venue.Passphrase, "VENUE_PASSPHRASE")
	setStr(&cfg.Venue.Address, "VENUE_ADDRESS")

	// ── Spike ──
	setFloat64(&cfg.Spike.MoveUSD, "SPIKE_MOVE_USD")
	setFloat64(&cfg.Spike.WindowSec, "SPIKE_WINDOW_SEC")
	setInt(&cfg.Spike.SettleSeconds, "SETTLE_SECONDS")
	setSecondsF(&cfg.Spike.PollInterval, "POLL_INTERVAL_SEC")

	// ── Exit ──
	setFloat64(&cfg.Exit.ProfitTargetPct, "PROFIT_TARGET_PCT")
	setFloat64(&cfg.Exit.MoonbagPct, "MOONBAG_PCT")
	setFloat64(&cfg.Exit.DrawdownTriggerPct, "DRAWDOWN_TRIGGER_PCT")
	setFloat64(&cfg.Exit.ProtectionExitPct, "PROTECTION_EXIT_PCT")
	setFloat64(&cfg.Exit.HardStopPct, "HARD_STOP_PCT")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxPositionUSDC, "MAX_POSITION_USDC")
	setInt(&cfg.Risk.MaxConcurrent, "MAX_CONCURRENT_POSITIONS")
	setFloat64(&cfg.Risk.MaxEntryPrice, "MAX_ENTRY_PRICE")
	setFloat64(&cfg.Risk.FeeRate, "FEE_RATE")
	setSecondsF(&cfg.Risk.MinTimeToResolution, "MIN_TIME_TO_RESOLUTION")
	setFloat64(&cfg.Risk.DailyLossLimitUSDC, "DAILY_LOSS_LIMIT_USDC")
	setFloat64(&cfg.Risk.MaxLossPerTradeUSDC, "MAX_LOSS_PER_TRADE_USDC")
	setInt(&cfg.Risk.LossesToPause, "CONSECUTIVE_LOSSES_TO_PAUSE")
	setMinutes(&cfg.Risk.PauseAfterStreak, "PAUSE_MINUTES_AFTER_STREAK")

	// ── Passive ──
	setFloat64(&cfg.Passive.EntryPrice, "PASSIVE_ENTRY_PRICE")
	setFloat64(&cfg.Passive.SellPrice, "PASSIVE_SELL_PRICE")
	setStr(&cfg.Passive.Side, "PASSIVE_SIDE")

	// ── Late ──
	setFloat64(&cfg.Late.EntryPrice, "LATE_ENTRY_PRICE")
	setFloat64(&cfg.Late.ChoppyCutoff, "CHOPPY_CUTOFF")
	setInt(&cfg.Late.TrackingStartSec, "TRACKING_START_SEC_BEFORE_END")
	setInt(&cfg.Late.DecisionSec, "DECISION_SEC_BEFORE_END")
	setFloat64(&cfg.Late.ManipulationMarginUSD, "MANIPULATION_MARGIN_USD")
	setFloat64(&cfg.Late.HardSellPrice, "S3_HARD_SELL")

	// ── Arb ──
	setFloat64(&cfg.Arb.MaxSum, "ARB_MAX_SUM")
	setFloat64(&cfg.Arb.USDCPerTrade, "ARB_USDC_PER_TRADE")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setInt(&cfg.Server.Port, "HTTP_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Strategy, "STRATEGY")
	setBool(&cfg.DryRun, "DRY_RUN")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setSecondsF reads a (possibly fractional) second count, e.g. "0.5".
func setSecondsF(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			dst.Duration = time.Duration(f * float64(time.Second))
		}
	}
}

// setMinutes reads a whole minute count, e.g. "30".
func setMinutes(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			dst.Duration = time.Duration(n) * time.Minute
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
