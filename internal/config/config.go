// Package config defines the top-level configuration for the spike bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by environment variables (the keys named
// in loader.go).
type Config struct {
	Feed     FeedConfig     `toml:"feed"`
	Venue    VenueConfig    `toml:"venue"`
	Registry RegistryConfig `toml:"registry"`
	Spike    SpikeConfig    `toml:"spike"`
	Exit     ExitConfig     `toml:"exit"`
	Risk     RiskConfig     `toml:"risk"`
	Passive  PassiveConfig  `toml:"passive"`
	Late     LateConfig     `toml:"late"`
	Arb      ArbConfig      `toml:"arb"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`

	Strategy string `toml:"strategy"` // spike | passive | late | arb
	DryRun   bool   `toml:"dry_run"`
	LogLevel string `toml:"log_level"`
}

// FeedConfig holds exchange trade-stream parameters.
type FeedConfig struct {
	Symbol      string   `toml:"symbol"`
	WSEndpoints []string `toml:"ws_endpoints"` // tried round-robin
	RestHost    string   `toml:"rest_host"`    // REST seed for the first price
	StaleAfter  duration `toml:"stale_after"`
	DeadAfter   duration `toml:"dead_after"` // continuous failure before feed_unavailable
}

// VenueConfig holds venue API endpoints and credentials.
type VenueConfig struct {
	GammaHost   string `toml:"gamma_host"`
	ClobHost    string `toml:"clob_host"`
	AssetTag    string `toml:"asset_tag"`
	DurationTag string `toml:"duration_tag"`

	ApiKey     string `toml:"api_key"`
	ApiSecret  string `toml:"api_secret"`
	Passphrase string `toml:"passphrase"`
	Address    string `toml:"address"`

	RequestTimeout duration `toml:"request_timeout"`
}

// RegistryConfig holds market discovery cadence and retention bounds.
type RegistryConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	ResolutionGrace duration `toml:"resolution_grace"`
	Lookahead       duration `toml:"lookahead"`
}

// SpikeConfig holds the primary spike-detection parameters.
type SpikeConfig struct {
	MoveUSD       float64  `toml:"move_usd"`
	WindowSec     float64  `toml:"window_sec"`
	Debounce      duration `toml:"debounce"`
	SettleSeconds int      `toml:"settle_seconds"`
	PollInterval  duration `toml:"poll_interval"`
}

// ExitConfig holds the exit state-machine thresholds, in percent gain.
type ExitConfig struct {
	ProfitTargetPct    float64  `toml:"profit_target_pct"`
	MoonbagPct         float64  `toml:"moonbag_pct"`
	DrawdownTriggerPct float64  `toml:"drawdown_trigger_pct"`
	ProtectionExitPct  float64  `toml:"protection_exit_pct"`
	HardStopPct        float64  `toml:"hard_stop_pct"`
	EvalInterval       duration `toml:"eval_interval"`
}

// RiskConfig holds sizing limits and the entry risk guards.
type RiskConfig struct {
	MaxPositionUSDC     float64  `toml:"max_position_usdc"`
	MaxConcurrent       int      `toml:"max_concurrent"`
	MaxEntryPrice       float64  `toml:"max_entry_price"`
	FeeRate             float64  `toml:"fee_rate"`
	MinTimeToResolution duration `toml:"min_time_to_resolution"`
	DailyLossLimitUSDC  float64  `toml:"daily_loss_limit_usdc"`
	MaxLossPerTradeUSDC float64  `toml:"max_loss_per_trade_usdc"`
	LossesToPause       int      `toml:"consecutive_losses_to_pause"`
	PauseAfterStreak    duration `toml:"pause_after_streak"`
}

// PassiveConfig holds strategy-2 (passive limit) parameters.
type PassiveConfig struct {
	EntryPrice float64 `toml:"entry_price"`
	SellPrice  float64 `toml:"sell_price"`
	Side       string  `toml:"side"` // Up or Down, fixed
}

// LateConfig holds strategy-3 (late-window threshold) parameters.
type LateConfig struct {
	EntryPrice            float64 `toml:"entry_price"`
	ChoppyCutoff          float64 `toml:"choppy_cutoff"`
	TrackingStartSec      int     `toml:"tracking_start_sec_before_end"`
	DecisionSec           int     `toml:"decision_sec_before_end"`
	ManipulationMarginUSD float64 `toml:"manipulation_margin_usd"`
	HardSellPrice         float64 `toml:"hard_sell_price"`
}

// ArbConfig holds strategy-4 (both-sides) parameters.
type ArbConfig struct {
	MaxSum       float64 `toml:"max_sum"`
	USDCPerTrade float64 `toml:"usdc_per_trade"`
}

// RedisConfig holds the optional snapshot fan-out bus. An empty addr disables
// Redis entirely and the in-process bus is used alone.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// ServerConfig holds the dashboard HTTP/WS server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			Symbol: "BTCUSDT",
			WSEndpoints: []string{
				"wss://stream.binance.com:9443/ws",
				"wss://stream.binance.com:443/ws",
			},
			RestHost:   "https://api.binance.com",
			StaleAfter: duration{5 * time.Second},
			DeadAfter:  duration{60 * time.Second},
		},
		Venue: VenueConfig{
			GammaHost:      "https://gamma-api.polymarket.com",
			ClobHost:       "https://clob.polymarket.com",
			AssetTag:       "btc",
			DurationTag:    "5m",
			RequestTimeout: duration{8 * time.Second},
		},
		Registry: RegistryConfig{
			RefreshInterval: duration{30 * time.Second},
			ResolutionGrace: duration{900 * time.Second},
			Lookahead:       duration{1800 * time.Second},
		},
		Spike: SpikeConfig{
			MoveUSD:       20.0,
			WindowSec:     3.0,
			Debounce:      duration{10 * time.Second},
			SettleSeconds: 10,
			PollInterval:  duration{500 * time.Millisecond},
		},
		Exit: ExitConfig{
			ProfitTargetPct:    10.0,
			MoonbagPct:         20.0,
			DrawdownTriggerPct: -15.0,
			ProtectionExitPct:  -10.0,
			HardStopPct:        -25.0,
			EvalInterval:       duration{time.Second},
		},
		Risk: RiskConfig{
			MaxPositionUSDC:     50,
			MaxConcurrent:       3,
			MaxEntryPrice:       0.60,
			FeeRate:             0.02,
			MinTimeToResolution: duration{30 * time.Second},
			DailyLossLimitUSDC:  200,
			MaxLossPerTradeUSDC: 25,
			LossesToPause:       3,
			PauseAfterStreak:    duration{30 * time.Minute},
		},
		Passive: PassiveConfig{
			EntryPrice: 0.50,
			SellPrice:  0.60,
			Side:       "Up",
		},
		Late: LateConfig{
			EntryPrice:            0.70,
			ChoppyCutoff:          0.65,
			TrackingStartSec:      165,
			DecisionSec:           90,
			ManipulationMarginUSD: 5,
			HardSellPrice:         0.30,
		},
		Arb: ArbConfig{
			MaxSum:       0.98,
			USDCPerTrade: 50,
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 10,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8899,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Strategy: "spike",
		DryRun:   true,
		LogLevel: "info",
	}
}

// validStrategies enumerates the accepted values for Config.Strategy.
var validStrategies = map[string]bool{
	"spike":   true,
	"passive": true,
	"late":    true,
	"arb":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validStrategies[strings.ToLower(c.Strategy)] {
		errs = append(errs, fmt.Sprintf("unknown strategy %q (valid: spike, passive, late, arb)", c.Strategy))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if c.Feed.Symbol == "" {
		errs = append(errs, "feed: symbol must not be empty")
	}
	if len(c.Feed.WSEndpoints) == 0 {
		errs = append(errs, "feed: at least one ws_endpoint is required")
	}
	if c.Feed.StaleAfter.Duration <= 0 {
		errs = append(errs, "feed: stale_after must be positive")
	}

	// Venue
	if c.Venue.GammaHost == "" {
		errs = append(errs, "venue: gamma_host must not be empty")
	}
	if c.Venue.ClobHost == "" {
		errs = append(errs, "venue: clob_host must not be empty")
	}
	if !c.DryRun {
		if c.Venue.ApiKey == "" || c.Venue.ApiSecret == "" || c.Venue.Passphrase == "" {
			errs = append(errs, "venue: api_key, api_secret, and passphrase are required unless dry_run is set")
		}
		if c.Venue.Address == "" {
			errs = append(errs, "venue: address is required unless dry_run is set")
		}
	}

	// Registry
	if c.Registry.RefreshInterval.Duration <= 0 {
		errs = append(errs, "registry: refresh_interval must be positive")
	}
	if c.Registry.ResolutionGrace.Duration < 0 {
		errs = append(errs, "registry: resolution_grace must not be negative")
	}

	// Spike
	if c.Spike.MoveUSD <= 0 {
		errs = append(errs, "spike: move_usd must be > 0")
	}
	if c.Spike.WindowSec <= 0 {
		errs = append(errs, "spike: window_sec must be > 0")
	}
	if c.Spike.SettleSeconds < 0 {
		errs = append(errs, "spike: settle_seconds must not be negative")
	}

	// Exit thresholds. The stops are percent losses and must be negative;
	// the targets are percent gains and must be positive.
	if c.Exit.ProfitTargetPct <= 0 {
		errs = append(errs, "exit: profit_target_pct must be > 0")
	}
	if c.Exit.MoonbagPct <= c.Exit.ProfitTargetPct {
		errs = append(errs, "exit: moonbag_pct must exceed profit_target_pct")
	}
	if c.Exit.DrawdownTriggerPct >= 0 {
		errs = append(errs, "exit: drawdown_trigger_pct must be < 0")
	}
	if c.Exit.ProtectionExitPct >= 0 {
		errs = append(errs, "exit: protection_exit_pct must be < 0")
	}
	if c.Exit.HardStopPct >= c.Exit.DrawdownTriggerPct {
		errs = append(errs, "exit: hard_stop_pct must be below drawdown_trigger_pct")
	}

	// Risk
	if c.Risk.MaxPositionUSDC <= 0 {
		errs = append(errs, "risk: max_position_usdc must be > 0")
	}
	if c.Risk.MaxConcurrent < 1 {
		errs = append(errs, "risk: max_concurrent must be >= 1")
	}
	if c.Risk.MaxEntryPrice <= 0 || c.Risk.MaxEntryPrice >= 1 {
		errs = append(errs, "risk: max_entry_price must be in (0, 1)")
	}
	if c.Risk.FeeRate < 0 || c.Risk.FeeRate >= 1 {
		errs = append(errs, "risk: fee_rate must be in [0, 1)")
	}

	// Passive
	if s := strings.ToLower(c.Passive.Side); s != "up" && s != "down" {
		errs = append(errs, fmt.Sprintf("passive: side must be Up or Down, got %q", c.Passive.Side))
	}

	// Late
	if c.Late.TrackingStartSec <= c.Late.DecisionSec {
		errs = append(errs, "late: tracking_start_sec_before_end must exceed decision_sec_before_end")
	}
	if c.Late.EntryPrice <= c.Late.ChoppyCutoff {
		errs = append(errs, "late: entry_price must exceed choppy_cutoff")
	}

	// Arb
	if c.Arb.MaxSum <= 0 || c.Arb.MaxSum >= 1 {
		errs = append(errs, "arb: max_sum must be in (0, 1)")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
