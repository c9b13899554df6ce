package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetpulse/internal/amqp"
	"budgetpulse/internal/cache"
	"budgetpulse/internal/config"
	"budgetpulse/internal/engine"
	apphttp "budgetpulse/internal/http"
	applog "budgetpulse/internal/log"
	"budgetpulse/internal/memory"
	"budgetpulse/internal/services"
	"budgetpulse/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentApp)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Entity store backend
	var (
		reader  engine.EntityReader
		writer  services.EntityWriter
		contrib engine.GoalContributor
		cleanup func() error
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		reader, writer, contrib, cleanup = repo, repo, repo, repo.Close
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	default:
		store := memory.New()
		reader, writer, contrib, cleanup = store, store, store, func() error { return nil }
		logger.Info("Initialized memory backend")
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// Derived-view cache with background expiry sweep
	store := cache.NewTTLStore(cfg.CacheMaxEntries)
	manager := cache.NewManager()
	manager.Register(store)
	manager.StartCleanup(cfg.CacheSweep)
	defer manager.Stop()

	eng := engine.New(engine.Config{
		Store:       reader,
		Contributor: contrib,
		Cache:       store,
		TTL: engine.TTLConfig{
			Preview:   cfg.PreviewTTL,
			Metric:    cfg.MetricTTL,
			Goal:      cfg.GoalTTL,
			Dashboard: cfg.DashboardTTL,
		},
		Logger: logger.WithComponent(applog.ComponentEngine),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Change-event bus (optional): publish own mutations, mirror other
	// instances' mutations into the local cache
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		queue := cfg.AMQPQueue
		if queue == "" {
			queue = "budgetpulse." + hostnameSuffix()
		}
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			defer amqpClient.Close()
			go consumeChangeEvents(ctx, amqpClient, eng.Invalidator(), logger)
			logger.Info("Initialized AMQP change-event bus", "exchange", cfg.AMQPExchange, "queue", queue)
		}
	}

	// A typed-nil *amqp.Client must not reach the interface field
	var publisher services.ChangePublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	mutations := services.NewMutationService(writer, eng, eng.Invalidator(), publisher, logger.WithComponent("mutations"))

	srv := apphttp.NewServer(":"+cfg.Port, eng, mutations, logger.WithComponent(applog.ComponentHTTP))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting budgetpulse server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped")
}

// consumeChangeEvents applies other instances' invalidations locally.
// Applying our own published events again is harmless: clears are idempotent.
func consumeChangeEvents(ctx context.Context, client *amqp.Client, inval *engine.Invalidator, logger *applog.Logger) {
	err := client.Consume(ctx, func(_ context.Context, msg *amqp.EntityChangedMessage) error {
		switch msg.Entity {
		case amqp.EntityCategory:
			inval.OnCategoryChanged(msg.UserID)
		case amqp.EntityExpense:
			inval.OnExpenseChanged(msg.UserID, msg.CategoryID, msg.SavingsGoalID)
		case amqp.EntityIncomeSource:
			inval.OnIncomeChanged(msg.UserID)
		case amqp.EntitySavingsGoal:
			inval.OnSavingsGoalChanged(msg.UserID)
		default:
			logger.Warn("Unknown entity in change event", "entity", msg.Entity)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Change-event consumer stopped", "error", err)
	}
}

func hostnameSuffix() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "local"
	}
	return host
}
