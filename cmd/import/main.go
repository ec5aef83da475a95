// Command import parses a bank-statement CSV, runs the reconciliation
// proposal against the member roster and prints the review table. Confirming
// candidates happens through the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/klab-verein/kassenwart/internal/application/statement"
	"github.com/klab-verein/kassenwart/internal/cli"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
	"github.com/klab-verein/kassenwart/internal/infrastructure/config"
	"github.com/klab-verein/kassenwart/internal/infrastructure/logging"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config.yaml (default: config.yaml, falls back to env)")
		file       = flag.String("file", "", "Path to the statement CSV export")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: import -file <kontoauszug.csv>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.LoadOrEnv(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "import")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening database failed", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("opening statement failed", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	batch, err := statement.Parse(f, *file)
	if err != nil {
		logger.Error("parsing statement failed", "file", *file, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	engine := recon.New(store, store, store, logger)
	proposal, err := engine.Propose(ctx, batch)
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}

	if err := store.SaveProposal(ctx, proposal, batch.ImportedAt); err != nil {
		logger.Error("saving batch failed", "error", err)
		os.Exit(1)
	}

	cli.PrintProposal(proposal)
	cli.PrintProposalSummary(proposal)
}
