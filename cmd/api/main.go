// Command api runs the HTTP backend for the review dashboard.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/klab-verein/kassenwart/internal/api"
	"github.com/klab-verein/kassenwart/internal/application/reminder"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
	"github.com/klab-verein/kassenwart/internal/infrastructure/config"
	"github.com/klab-verein/kassenwart/internal/infrastructure/logging"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: config.yaml, falls back to env)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadOrEnv(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening database failed", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := recon.New(store, store, store, logger)

	var reminders *reminder.Service
	if cfg.TelegramConfigured() {
		sender := reminder.NewTelegramClient(cfg.Telegram.BotToken)
		reminders = reminder.NewService(cfg.Club.Name, store, sender, logger)
	}

	server := api.NewServer(cfg.API, store, engine, reminders, logger)
	if err := server.Run(); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}
