package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dosewise/dosewise/internal/api"
	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/enrich"
	"github.com/dosewise/dosewise/internal/history"
	"github.com/dosewise/dosewise/internal/metrics"
	"github.com/dosewise/dosewise/internal/notify"
	"github.com/dosewise/dosewise/internal/store"
	"github.com/dosewise/dosewise/internal/tracker"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("dosewised version %s\n", version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting dosewised", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("Failed to open medicine store", zap.Error(err))
	}
	defer st.Close()

	doseLog, err := history.Open(cfg.Storage.DoseLogPath)
	if err != nil {
		logger.Fatal("Failed to open dose log", zap.Error(err))
	}

	sink := buildNotifier(cfg, logger)
	m := metrics.New()

	tr := tracker.New(st, logger).
		WithDoseLog(doseLog).
		WithNotifier(sink).
		WithMetrics(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tr.Reload(ctx); err != nil {
		logger.Warn("Initial load failed, starting with an empty collection", zap.Error(err))
	}

	scheduler := tracker.NewScheduler(tr, logger).
		WithInterval(time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second).
		WithNotifier(sink).
		WithMetrics(m)
	scheduler.Start(ctx)

	rollover := tracker.NewRollover(tr, logger).WithNotifier(sink)
	if err := rollover.Start(); err != nil {
		logger.Error("Failed to start midnight rollover", zap.Error(err))
	}

	server := api.New(cfg, tr, logger).
		WithHistory(doseLog).
		WithMetrics(m)

	if cfg.Enrichment.Enabled {
		extractor := enrich.NewExtractor(enrich.Config{
			BaseURL:        cfg.Enrichment.BaseURL,
			APIKey:         cfg.Enrichment.APIKey,
			Model:          cfg.Enrichment.Model,
			TimeoutSeconds: cfg.Enrichment.TimeoutSeconds,
		}, logger)
		server.WithExtractor(extractor)
		logger.Info("Label extraction enabled", zap.String("model", cfg.Enrichment.Model))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	logger.Info("dosewised ready",
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
		zap.Int("poll_interval_seconds", cfg.Scheduler.IntervalSeconds),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	scheduler.Stop()
	rollover.Stop()
	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}

// buildNotifier assembles the notification fan-out from the configured
// channels. A channel that fails to connect is skipped, not fatal; with
// no channels at all the log sink keeps the notification path alive.
func buildNotifier(cfg *config.Config, logger *zap.Logger) notify.Sink {
	var sinks []notify.Sink

	if cfg.Notifications.Telegram.Enabled {
		tg, err := notify.NewTelegramSink(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("Failed to connect Telegram", zap.Error(err))
		} else {
			sinks = append(sinks, tg)
			logger.Info("Telegram notifications enabled")
		}
	}

	if cfg.Notifications.Discord.Enabled {
		dc, err := notify.NewDiscordSink(cfg.Notifications.Discord.Token, cfg.Notifications.Discord.ChannelID, logger)
		if err != nil {
			logger.Error("Failed to connect Discord", zap.Error(err))
		} else {
			sinks = append(sinks, dc)
			logger.Info("Discord notifications enabled")
		}
	}

	if len(sinks) == 0 {
		sinks = append(sinks, notify.NewLogSink(logger))
	}

	return notify.NewMulti(sinks, cfg.Notifications.AlertsPerMinute, logger)
}

func printHelp() {
	fmt.Println("dosewised - medication reminder service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dosewised                 Run the service")
	fmt.Println("  dosewised version         Show version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <path>           Path to config file")
	fmt.Println("  --data <path>             Path to data directory")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DOSEWISE_SERVER_PORT                          HTTP port")
	fmt.Println("  DOSEWISE_NOTIFICATIONS_TELEGRAM_BOT_TOKEN     Telegram bot token")
	fmt.Println("  DOSEWISE_NOTIFICATIONS_DISCORD_TOKEN          Discord bot token")
	fmt.Println("  DOSEWISE_ENRICHMENT_API_KEY                   Vision provider API key")
}
