package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"SP500Tracker/internal/cache"
	"SP500Tracker/internal/calculator"
	"SP500Tracker/internal/collector"
	"SP500Tracker/internal/config"
	"SP500Tracker/internal/dashboard"
	"SP500Tracker/internal/logging"
	"SP500Tracker/internal/notifier"
	"SP500Tracker/internal/recorder"
	"SP500Tracker/internal/retry"
	"SP500Tracker/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logging.NewLogger(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	log.Info().Str("config", cfgPath).Msg("SP500Tracker starting")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	// Init fetcher
	fetcher, err := collector.NewFetcher(collector.SourceConfig{
		Provider:    cfg.DataSource.Provider,
		YahooURL:    cfg.DataSource.YahooURL,
		VsTraderURL: cfg.DataSource.BaseURL,
		APIKey:      cfg.DataSource.APIKey,
		Proxy:       cfg.Proxy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init data source")
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	var universe collector.Universe = collector.NewWikipediaUniverse(cfg.DataSource.UniverseURL, cfg.Proxy)
	if cfg.DataSource.Provider == config.ProviderMock {
		universe = collector.StaticUniverse(collector.FallbackUniverse())
	}

	// Init collector
	memo := cache.New(cfg.Tracker.CacheTTL)
	col := collector.NewCollector(fetcher, universe, memo, collector.Options{
		ReferenceSymbol: cfg.DataSource.ReferenceSymbol,
		HistoryRange:    cfg.DataSource.HistoryRange,
		ReferenceRange:  cfg.DataSource.ReferenceRange,
		Window:          calculator.Window{Bars: cfg.Tracker.WindowBars, MinBars: cfg.Tracker.SufficiencyBars},
		RegimeThreshold: cfg.RegimeThreshold(),
		Workers:         cfg.Tracker.Workers,
		RequestInterval: cfg.Tracker.RequestInterval,
		Retry: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			Jitter:     cfg.Retry.Jitter,
			MaxElapsed: cfg.Retry.MaxElapsed,
		},
	}, log)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, memo, rec, cfg.Tracker.StockCount, cfg.AutoRefreshEnabled(), log)
	if cfg.AlertsEnabled() {
		sched.Notifier = notifier.NewTelegramNotifier(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sched.AlertTop = cfg.Telegram.AlertTop
		log.Info().Msg("telegram regime alerts enabled")
	}
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, refreshing now")
		sched.RunAsync(cfg.Tracker.StockCount)
	}

	srv := dashboard.NewServer(dashboard.Options{
		Address:     cfg.Dashboard.Address,
		PageRefresh: cfg.Dashboard.PageRefresh,
	}, sched, rec, log)

	log.Info().Str("address", srv.Address()).Msg("SP500Tracker is running. Press Ctrl+C to stop.")
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("dashboard stopped")
	}

	log.Info().Msg("SP500Tracker stopped")
}
