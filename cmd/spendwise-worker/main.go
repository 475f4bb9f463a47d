package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendwise/internal/amqp"
	"spendwise/internal/config"
	gsheet "spendwise/internal/export/google"
	"spendwise/internal/storage"
	"spendwise/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting spendwise-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Statement export is optional: without a spreadsheet the worker stays
	// idle and never binds the queue, so events are not accumulated for a
	// consumer that will never drain them.
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Statement export disabled - no GOOGLE_SPREADSHEET_ID provided, running idle")
	} else {
		statementClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		exportWorker := worker.NewExportWorker(repo, statementClient, cfg.ExportBatchSize)

		// On startup, process any pending exports that might have been missed
		logger.Info("Performing startup sweep...")
		if err := exportWorker.StartupSweep(ctx); err != nil {
			logger.Error("Failed startup sweep", "error", err)
			// Don't exit - continue with normal operation
		}

		go func() {
			if err := amqpClient.ConsumeLedgerEvents(ctx, exportWorker.HandleLedgerEvent); err != nil {
				if err != context.Canceled {
					logger.Error("Event consumption failed", "error", err)
				}
				cancel()
			}
		}()

		// Periodic sweep for any missed messages
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := exportWorker.ProcessPending(ctx); err != nil {
						logger.Error("Periodic sweep failed", "error", err)
					}
				}
			}
		}()
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give worker time to finish current operations
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
