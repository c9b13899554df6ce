// budget-worker periodically exports each configured user's monthly budget
// report to a Google spreadsheet. It reads entities through the same engine
// as the server, just without a cache.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"budgetpulse/internal/config"
	"budgetpulse/internal/engine"
	"budgetpulse/internal/export"
	applog "budgetpulse/internal/log"
	"budgetpulse/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting budget-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("No GOOGLE_SPREADSHEET_ID configured, nothing to export")
		os.Exit(1)
	}

	userIDs, err := parseUserIDs(os.Getenv("EXPORT_USER_IDS"))
	if err != nil {
		logger.Error("Invalid EXPORT_USER_IDS", "error", err)
		os.Exit(1)
	}
	if len(userIDs) == 0 {
		logger.Error("No EXPORT_USER_IDS configured, nothing to export")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter, err := export.NewSheetsExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleCredentialsJSON)
	if err != nil {
		logger.Error("Failed to initialize Sheets exporter", "error", err)
		os.Exit(1)
	}

	// No cache: each export run reads fresh figures
	eng := engine.New(engine.Config{
		Store:  repo,
		Logger: logger.WithComponent(applog.ComponentEngine),
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Export loop started",
		"interval", cfg.ExportInterval.String(),
		"users", len(userIDs),
		"sheet", cfg.GoogleSheetName)

	runExports(ctx, eng, exporter, userIDs, logger)

	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopped")
			return
		case <-ticker.C:
			runExports(ctx, eng, exporter, userIDs, logger)
		}
	}
}

func runExports(ctx context.Context, eng *engine.Engine, exporter *export.SheetsExporter, userIDs []uuid.UUID, logger *applog.Logger) {
	for _, userID := range userIDs {
		progress, err := eng.MonthlyProgress(ctx, userID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to compute monthly progress",
				applog.FieldUserID, userID, applog.FieldError, err)
			continue
		}
		if err := exporter.AppendMonthlyReport(ctx, userID.String(), progress); err != nil {
			logger.ErrorContext(ctx, "Failed to export monthly report",
				applog.FieldUserID, userID, applog.FieldError, err)
			continue
		}
		logger.InfoContext(ctx, "Exported monthly report",
			applog.FieldUserID, userID,
			applog.FieldPeriod, progress.Period.Key())
	}
}

func parseUserIDs(raw string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
