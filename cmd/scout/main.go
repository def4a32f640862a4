package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StockScout/internal/analyst"
	"StockScout/internal/config"
	"StockScout/internal/notifier"
	"StockScout/internal/provider"
	"StockScout/internal/recorder"
	"StockScout/internal/report"
	"StockScout/internal/retrieval"
	"StockScout/internal/scheduler"
	"StockScout/internal/screener"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Msg("StockScout starting")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	// Data source
	var prov provider.Provider
	switch cfg.DataSource.Provider {
	case "mock":
		prov = provider.NewMock()
	default:
		yp := provider.NewYahooProvider(cfg.Proxy)
		if cfg.DataSource.BaseURL != "" {
			yp.SetBaseURL(cfg.DataSource.BaseURL)
		}
		prov = yp
	}
	log.Info().Str("provider", prov.Name()).Msg("data source ready")

	cache := retrieval.NewMemoryCache(cfg.CacheTTL())
	client := retrieval.NewClient(prov, cache, cfg.RetrievalOptions(), log.Logger)

	scorer, err := screener.NewScorer(cfg.Scoring)
	if err != nil {
		log.Fatal().Err(err).Msg("build scorer")
	}
	scr := screener.New(client, scorer, cfg.Indicators,
		cfg.DataSource.LookbackDays, cfg.Screen.Concurrency, log.Logger)

	// Analyst
	var an analyst.Analyst = analyst.Disabled{}
	if cfg.Analyst.Enabled {
		an = analyst.NewOpenAIAnalyst(cfg.Analyst.BaseURL, cfg.Analyst.APIKey,
			cfg.Analyst.Model, cfg.Proxy, log.Logger)
		log.Info().Str("model", cfg.Analyst.Model).Msg("analyst enabled")
	}

	// Telegram is optional: without it the scout still screens, records and
	// writes reports.
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Logger)
	} else {
		log.Warn().Msg("telegram not configured, notifications disabled")
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Logger)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var schedNotifier scheduler.Notifier
	if tn != nil {
		schedNotifier = tn
	}
	sched := scheduler.NewScheduler(ctx, scr, cfg.Screen.Strategies, an,
		report.NewWriter(cfg.Report.Dir), schedNotifier, rec, log.Logger)
	if err := sched.RegisterAll(cfg.Schedule.Crons); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// RUN_ON_START names a strategy to execute immediately.
	if name := os.Getenv("RUN_ON_START"); name != "" {
		log.Info().Str("strategy", name).Msg("RUN_ON_START enabled")
		go sched.RunNow(name)
	}

	log.Info().Msg("StockScout is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	log.Info().Msg("StockScout stopped")
}
