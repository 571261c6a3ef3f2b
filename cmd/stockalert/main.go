package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/minhtri/stockalert/internal/commands"
	"github.com/minhtri/stockalert/internal/config"
	"github.com/minhtri/stockalert/internal/engine"
	"github.com/minhtri/stockalert/internal/logger"
	"github.com/minhtri/stockalert/internal/market"
	"github.com/minhtri/stockalert/internal/storage"
	"github.com/minhtri/stockalert/internal/store"
	"github.com/minhtri/stockalert/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	journal, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize notification journal: %v", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Error("Failed to close notification journal: %v", err)
		}
	}()

	prices := market.NewPriceProvider(
		market.NewBoardSource(cfg.Market.BoardAPIURL, cfg.Market.Timeout),
		market.NewBarsSource(cfg.Market.BarsAPIURL, cfg.Market.Timeout),
	)
	events := market.NewEventProvider(
		cfg.Market.EventHorizonDays,
		market.NewTimelineSource(cfg.Market.TimelineAPIURL, cfg.Market.Timeout),
		market.NewCalendarSource(cfg.Market.CalendarAPIURL, cfg.Market.Timeout),
	)

	alerts := store.New()
	svc := commands.New(alerts, prices, events, journal)

	bot, err := telegram.NewClient(cfg.Telegram.BotToken, svc, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram client: %v", err)
	}
	logger.Info("Telegram client initialized successfully")

	eng := engine.New(alerts, prices, bot, journal, engine.Config{
		PollInterval:      cfg.Engine.PollInterval,
		InitialDelay:      cfg.Engine.InitialDelay,
		WarningWindowDays: cfg.Engine.WarningWindowDays,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	bot.ListenForCommands(ctx)

	logger.Info("Starting alert service (interval: %v, initial delay: %v, warning window: %d days)",
		cfg.Engine.PollInterval, cfg.Engine.InitialDelay, cfg.Engine.WarningWindowDays)

	eng.Run(ctx)

	logger.Info("Service stopped")
}
