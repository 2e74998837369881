package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Data source providers.
const (
	ProviderYahoo    = "yahoo"
	ProviderVsTrader = "vstrader"
	ProviderMock     = "mock"
)

const (
	MinStockCount = 10
	MaxStockCount = 500
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider        string `yaml:"provider"`
		BaseURL         string `yaml:"base_url"` // vstrader endpoint
		YahooURL        string `yaml:"yahoo_url"`
		APIKey          string `yaml:"api_key"`
		ReferenceSymbol string `yaml:"reference_symbol"`
		HistoryRange    string `yaml:"history_range"`
		ReferenceRange  string `yaml:"reference_range"`
		UniverseURL     string `yaml:"universe_url"`
	} `yaml:"data_source"`
	Tracker struct {
		StockCount      int           `yaml:"stock_count"`
		WindowBars      int           `yaml:"window_bars"`
		SufficiencyBars int           `yaml:"sufficiency_bars"`
		RegimeThreshold *float64      `yaml:"regime_threshold"`
		Workers         int           `yaml:"workers"`
		RequestInterval time.Duration `yaml:"request_interval"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
	} `yaml:"tracker"`
	Retry struct {
		MaxRetries int           `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
		Jitter     time.Duration `yaml:"jitter"`
		MaxElapsed time.Duration `yaml:"max_elapsed"`
	} `yaml:"retry"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		AutoRefresh *bool  `yaml:"auto_refresh"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Dashboard struct {
		Address     string        `yaml:"address"`
		PageRefresh time.Duration `yaml:"page_refresh"`
	} `yaml:"dashboard"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIURL   string `yaml:"api_url"`
		AlertTop int    `yaml:"alert_top"`
	} `yaml:"telegram"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.DataSource.YahooURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STOCK_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracker.StockCount = n
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("AUTO_REFRESH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.AutoRefresh = &b
		}
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.RunOnStart = b
		}
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.Address = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = ProviderYahoo
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = ProviderVsTrader
		}
	}
	if cfg.DataSource.ReferenceSymbol == "" {
		cfg.DataSource.ReferenceSymbol = "SPY"
	}
	if cfg.DataSource.HistoryRange == "" {
		cfg.DataSource.HistoryRange = "6mo"
	}
	if cfg.DataSource.ReferenceRange == "" {
		cfg.DataSource.ReferenceRange = "5d"
	}
	if cfg.DataSource.UniverseURL == "" {
		cfg.DataSource.UniverseURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	}
	if cfg.Tracker.StockCount == 0 {
		cfg.Tracker.StockCount = 50
	}
	if cfg.Tracker.WindowBars == 0 {
		cfg.Tracker.WindowBars = 100
	}
	if cfg.Tracker.SufficiencyBars == 0 {
		cfg.Tracker.SufficiencyBars = 50
	}
	if cfg.Tracker.RegimeThreshold == nil {
		th := 0.1
		cfg.Tracker.RegimeThreshold = &th
	}
	if cfg.Tracker.Workers == 0 {
		cfg.Tracker.Workers = 1
	}
	if cfg.Tracker.RequestInterval == 0 {
		cfg.Tracker.RequestInterval = 50 * time.Millisecond
	}
	if cfg.Tracker.CacheTTL == 0 {
		cfg.Tracker.CacheTTL = 5 * time.Minute
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = time.Second
	}
	if cfg.Retry.MaxElapsed == 0 {
		cfg.Retry.MaxElapsed = 30 * time.Second
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "@every 5m"
	}
	if cfg.Schedule.AutoRefresh == nil {
		on := true
		cfg.Schedule.AutoRefresh = &on
	}
	if cfg.Dashboard.Address == "" {
		cfg.Dashboard.Address = ":8080"
	}
	if cfg.Dashboard.PageRefresh == 0 {
		cfg.Dashboard.PageRefresh = 5 * time.Minute
	}
	if cfg.Telegram.AlertTop == 0 {
		cfg.Telegram.AlertTop = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
}

// AutoRefreshEnabled reports whether the periodic refresh starts enabled.
func (c *Config) AutoRefreshEnabled() bool {
	return c.Schedule.AutoRefresh == nil || *c.Schedule.AutoRefresh
}

// AlertsEnabled reports whether regime-change alerts are sent to Telegram.
func (c *Config) AlertsEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// RegimeThreshold returns the minimum absolute daily change, in percent, for an UP or DOWN regime.
func (c *Config) RegimeThreshold() float64 {
	if c.Tracker.RegimeThreshold == nil {
		return 0.1
	}
	return *c.Tracker.RegimeThreshold
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderVsTrader:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider %q", ProviderVsTrader)
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Tracker.StockCount < MinStockCount || c.Tracker.StockCount > MaxStockCount {
		return fmt.Errorf("tracker.stock_count must be between %d and %d", MinStockCount, MaxStockCount)
	}
	if c.Tracker.WindowBars <= 0 {
		return fmt.Errorf("tracker.window_bars must be positive")
	}
	if c.Tracker.SufficiencyBars <= 0 || c.Tracker.SufficiencyBars > c.Tracker.WindowBars {
		return fmt.Errorf("tracker.sufficiency_bars must be between 1 and tracker.window_bars")
	}
	if c.RegimeThreshold() < 0 {
		return fmt.Errorf("tracker.regime_threshold must not be negative")
	}
	if c.Tracker.Workers <= 0 {
		return fmt.Errorf("tracker.workers must be positive")
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be at least 1")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
