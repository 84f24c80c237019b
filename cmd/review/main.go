package main

import (
	"context"
	"os"

	"IntelScanner/internal/config"
	"IntelScanner/internal/infrastructure/storage"
	"IntelScanner/internal/logging"
	"IntelScanner/internal/review"
	"IntelScanner/internal/usecase"
)

// Standalone editor console. Only needs the database, so Slack and LLM
// credentials are not required to run it.
func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("open storage failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := storage.NewSQLiteRepository(db, logger.With("component", "storage"))
	if err := repo.Migrate(ctx); err != nil {
		logger.Error("migrate storage failed", "error", err)
		os.Exit(1)
	}

	scorer := usecase.NewThreatScorer(repo, logger.With("component", "threat"))
	console := review.NewConsole(repo, scorer, os.Stdin, os.Stdout)

	if _, err := console.Run(ctx); err != nil {
		logger.Error("review session failed", "error", err)
		os.Exit(1)
	}
}
