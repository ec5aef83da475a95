// Command remind sends payment reminders via Telegram or, with -csv, writes
// the reminder report to a file instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/klab-verein/kassenwart/internal/application/reminder"
	"github.com/klab-verein/kassenwart/internal/infrastructure/config"
	"github.com/klab-verein/kassenwart/internal/infrastructure/logging"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config.yaml (default: config.yaml, falls back to env)")
		csvPath    = flag.String("csv", "", "Write the reminder report to this CSV file instead of sending")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadOrEnv(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "remind")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening database failed", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var sender reminder.Sender
	if cfg.TelegramConfigured() {
		sender = reminder.NewTelegramClient(cfg.Telegram.BotToken)
	}
	svc := reminder.NewService(cfg.Club.Name, store, sender, logger)
	ctx := context.Background()

	if *csvPath != "" {
		exportCSV(ctx, svc, *csvPath, logger)
		return
	}

	if sender == nil {
		logger.Error("telegram bot not configured; set telegram.bot_token or use -csv")
		os.Exit(1)
	}

	results, err := svc.SendAll(ctx)
	if err != nil {
		logger.Error("sending reminders failed", "error", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No outstanding payments or no members reachable via Telegram.")
		return
	}
	for name, ok := range results {
		status := "sent"
		if !ok {
			status = "FAILED"
		}
		fmt.Printf("  %-30s %s\n", name, status)
	}
}

func exportCSV(ctx context.Context, svc *reminder.Service, path string, logger *slog.Logger) {
	entries, err := svc.Outstanding(ctx)
	if err != nil {
		logger.Error("collecting outstanding dues failed", "error", err)
		os.Exit(1)
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Error("creating export file failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := reminder.ExportCSV(f, entries); err != nil {
		logger.Error("writing export failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d reminders to %s\n", len(entries), path)
}
