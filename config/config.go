package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/screener/backtest"
	"github.com/rustyeddy/screener/retry"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/signal"
)

// Config represents the complete screener configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Signal   SignalConfig   `json:"signal" yaml:"signal"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Screen   ScreenConfig   `json:"screen" yaml:"screen"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains account parameters
type AccountConfig struct {
	Size     float64 `json:"size" yaml:"size"`
	Currency string  `json:"currency" yaml:"currency"`
}

// RiskConfig contains sizing and portfolio limits. Percentages are fractions.
type RiskConfig struct {
	MaxRiskPct          float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MaxPositionPct      float64 `json:"max_position_pct" yaml:"max_position_pct"`
	RiskMultiple        float64 `json:"risk_multiple" yaml:"risk_multiple"`
	RiskReward          float64 `json:"risk_reward" yaml:"risk_reward"`
	MaxPortfolioRiskPct float64 `json:"max_portfolio_risk_pct" yaml:"max_portfolio_risk_pct"`
	MaxOpenPositions    int     `json:"max_open_positions" yaml:"max_open_positions"`
	Sizer               string  `json:"sizer" yaml:"sizer"` // "capped" or "dollar"
}

// SignalConfig contains the entry filter parameters
type SignalConfig struct {
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold"`
	TrendPeriod    int     `json:"trend_period" yaml:"trend_period"`
	ATRPeriod      int     `json:"atr_period" yaml:"atr_period"`
	StopMultiple   float64 `json:"stop_multiple" yaml:"stop_multiple"`
}

// BacktestConfig contains simulation parameters
type BacktestConfig struct {
	InitialCash  float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeRate      float64 `json:"fee_rate" yaml:"fee_rate"`
	SlippageRate float64 `json:"slippage_rate" yaml:"slippage_rate"`
	Accumulate   bool    `json:"accumulate" yaml:"accumulate"`
	Start        string  `json:"start,omitempty" yaml:"start,omitempty"` // 2006-01-02
	End          string  `json:"end,omitempty" yaml:"end,omitempty"`
}

// ScreenConfig contains the nightly screen filters
type ScreenConfig struct {
	Universe string  `json:"universe" yaml:"universe"`
	MinPrice float64 `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	TopN     int     `json:"top_n,omitempty" yaml:"top_n,omitempty"`
}

// CacheConfig contains score cache parameters
type CacheConfig struct {
	Backend   string `json:"backend" yaml:"backend"` // "sqlite", "redis" or "memory"
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Freshness string `json:"freshness" yaml:"freshness"` // e.g. "24h"
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

// ProviderConfig selects where prices, scores and universes come from
type ProviderConfig struct {
	Synthetic    bool        `json:"synthetic" yaml:"synthetic"`
	Seed         int64       `json:"seed,omitempty" yaml:"seed,omitempty"`
	PricesDir    string      `json:"prices_dir,omitempty" yaml:"prices_dir,omitempty"`
	ScoresFile   string      `json:"scores_file,omitempty" yaml:"scores_file,omitempty"`
	UniverseFile string      `json:"universe_file,omitempty" yaml:"universe_file,omitempty"`
	RatePerSec   float64     `json:"rate_per_sec,omitempty" yaml:"rate_per_sec,omitempty"`
	Retry        RetryConfig `json:"retry" yaml:"retry"`
}

// RetryConfig contains the provider retry policy
type RetryConfig struct {
	Attempts    int    `json:"attempts" yaml:"attempts"`
	Delay       string `json:"delay" yaml:"delay"`
	MaxDelay    string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	Exponential bool   `json:"exponential" yaml:"exponential"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Size <= 0 {
		return fmt.Errorf("account.size must be positive")
	}

	if c.Risk.MaxRiskPct <= 0 || c.Risk.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be between 0 and 1")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be between 0 and 1")
	}
	if c.Risk.MaxPortfolioRiskPct <= 0 || c.Risk.MaxPortfolioRiskPct > 1 {
		return fmt.Errorf("risk.max_portfolio_risk_pct must be between 0 and 1")
	}
	if c.Risk.RiskMultiple <= 0 {
		return fmt.Errorf("risk.risk_multiple must be positive")
	}
	if c.Risk.RiskReward <= 0 {
		return fmt.Errorf("risk.risk_reward must be positive")
	}
	if c.Risk.MaxOpenPositions < 0 {
		return fmt.Errorf("risk.max_open_positions cannot be negative")
	}
	if c.Risk.Sizer != risk.SizerCapped && c.Risk.Sizer != risk.SizerDollar {
		return fmt.Errorf("risk.sizer must be %q or %q", risk.SizerCapped, risk.SizerDollar)
	}

	if c.Signal.ScoreThreshold < 0 || c.Signal.ScoreThreshold > 100 {
		return fmt.Errorf("signal.score_threshold must be between 0 and 100")
	}
	if c.Signal.TrendPeriod <= 0 || c.Signal.ATRPeriod <= 0 {
		return fmt.Errorf("signal periods must be positive")
	}
	if c.Signal.StopMultiple <= 0 {
		return fmt.Errorf("signal.stop_multiple must be positive")
	}

	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive")
	}
	if c.Backtest.FeeRate < 0 || c.Backtest.SlippageRate < 0 {
		return fmt.Errorf("backtest fee and slippage rates cannot be negative")
	}
	start, end, err := c.Backtest.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("backtest.end is before backtest.start")
	}

	if c.Screen.MinPrice < 0 || c.Screen.MaxPrice < 0 {
		return fmt.Errorf("screen prices cannot be negative")
	}
	if c.Screen.MaxPrice > 0 && c.Screen.MaxPrice < c.Screen.MinPrice {
		return fmt.Errorf("screen.max_price is below screen.min_price")
	}

	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path required for sqlite backend")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be 'sqlite', 'redis' or 'memory'")
	}
	if _, err := c.Cache.FreshnessDuration(); err != nil {
		return err
	}
	if c.Cache.BatchSize < 0 {
		return fmt.Errorf("cache.batch_size cannot be negative")
	}

	if !c.Provider.Synthetic && c.Provider.PricesDir == "" {
		return fmt.Errorf("provider.prices_dir required unless provider.synthetic is set")
	}
	if c.Provider.RatePerSec < 0 {
		return fmt.Errorf("provider.rate_per_sec cannot be negative")
	}
	if _, err := c.Provider.Retry.Policy(); err != nil {
		return err
	}

	return nil
}

// Default returns a default configuration
func Default() *Config {
	bt := backtest.DefaultOptions()
	sp := signal.DefaultParams()
	rp := risk.DefaultPolicy()
	return &Config{
		Account: AccountConfig{
			Size:     100000,
			Currency: "USD",
		},
		Risk: RiskConfig{
			MaxRiskPct:          rp.MaxRiskPct,
			MaxPositionPct:      rp.MaxPositionPct,
			RiskMultiple:        2.0,
			RiskReward:          2.0,
			MaxPortfolioRiskPct: rp.MaxPortfolioRiskPct,
			MaxOpenPositions:    rp.MaxOpenTrades,
			Sizer:               risk.SizerCapped,
		},
		Signal: SignalConfig{
			ScoreThreshold: 7,
			TrendPeriod:    sp.TrendPeriod,
			ATRPeriod:      sp.ATRPeriod,
			StopMultiple:   sp.StopMultiple,
		},
		Backtest: BacktestConfig{
			InitialCash:  bt.InitialCash,
			FeeRate:      bt.FeeRate,
			SlippageRate: bt.SlippageRate,
			Accumulate:   bt.Accumulate,
		},
		Screen: ScreenConfig{
			Universe: "SP500",
			TopN:     10,
		},
		Cache: CacheConfig{
			Backend:   "sqlite",
			Path:      "scores.db",
			Freshness: "24h",
			BatchSize: 100,
		},
		Provider: ProviderConfig{
			Synthetic: true,
			Seed:      42,
			Retry: RetryConfig{
				Attempts: 3,
				Delay:    "2s",
				MaxDelay: "30s",
			},
		},
		Journal: JournalConfig{
			DBPath: "screener.db",
		},
	}
}

// SignalParams converts the signal section.
func (c *Config) SignalParams() signal.Params {
	return signal.Params{
		TrendPeriod:  c.Signal.TrendPeriod,
		ATRPeriod:    c.Signal.ATRPeriod,
		StopMultiple: c.Signal.StopMultiple,
	}
}

// BacktestOptions converts the backtest section.
func (c *Config) BacktestOptions() backtest.Options {
	return backtest.Options{
		InitialCash:  c.Backtest.InitialCash,
		FeeRate:      c.Backtest.FeeRate,
		SlippageRate: c.Backtest.SlippageRate,
		Accumulate:   c.Backtest.Accumulate,
	}
}

// RiskPolicy converts the risk section. The minimum reward:risk is the
// configured take-profit multiple.
func (c *Config) RiskPolicy() risk.Policy {
	return risk.Policy{
		MaxRiskPct:          c.Risk.MaxRiskPct,
		MaxPositionPct:      c.Risk.MaxPositionPct,
		MaxPortfolioRiskPct: c.Risk.MaxPortfolioRiskPct,
		MaxOpenTrades:       c.Risk.MaxOpenPositions,
		MinRR:               c.Risk.RiskReward,
	}
}

// Range parses start and end. Empty values are returned as zero times.
func (b BacktestConfig) Range() (start, end time.Time, err error) {
	if b.Start != "" {
		if start, err = time.Parse("2006-01-02", b.Start); err != nil {
			return start, end, fmt.Errorf("backtest.start: %w", err)
		}
	}
	if b.End != "" {
		if end, err = time.Parse("2006-01-02", b.End); err != nil {
			return start, end, fmt.Errorf("backtest.end: %w", err)
		}
	}
	return start, end, nil
}

// FreshnessDuration parses the freshness window; empty means 24h.
func (c CacheConfig) FreshnessDuration() (time.Duration, error) {
	if c.Freshness == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Freshness)
	if err != nil {
		return 0, fmt.Errorf("cache.freshness: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("cache.freshness must be positive")
	}
	return d, nil
}

// Policy converts the retry section. Zero attempts means retry.Default.
func (r RetryConfig) Policy() (retry.Policy, error) {
	p := retry.Default()
	if r.Attempts < 0 {
		return p, fmt.Errorf("provider.retry.attempts cannot be negative")
	}
	if r.Attempts > 0 {
		p.Attempts = r.Attempts
	}
	if r.Delay != "" {
		d, err := time.ParseDuration(r.Delay)
		if err != nil {
			return p, fmt.Errorf("provider.retry.delay: %w", err)
		}
		p.Delay = d
	}
	if r.MaxDelay != "" {
		d, err := time.ParseDuration(r.MaxDelay)
		if err != nil {
			return p, fmt.Errorf("provider.retry.max_delay: %w", err)
		}
		p.MaxDelay = d
	}
	p.Exponential = r.Exponential
	return p, nil
}
