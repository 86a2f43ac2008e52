package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"financia/internal/amqp"
	"financia/internal/backend"
	"financia/internal/cli"
	"financia/internal/cloud/firestore"
	"financia/internal/config"
	"financia/internal/log"
	"financia/internal/services"
	"financia/internal/sheets"
	gsheet "financia/internal/sheets/google"
	"financia/internal/storage"
	"financia/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting financia-worker")

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	// The worker reads what the server persisted locally.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open sqlite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	var cloud backend.StateWriter
	if cfg.FirestoreEnabled() {
		fs, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, cfg.FirestoreCollection)
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		defer fs.Close()
		cloud = fs
		logger.Info("Firestore sync enabled", "project_id", cfg.FirestoreProjectID)
	} else {
		logger.Info("Firestore sync disabled - no FIRESTORE_PROJECT_ID provided")
	}

	var exporter sheets.HistoryExporter
	if cfg.SheetsEnabled() {
		sc, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			HistorySheet:       cfg.GoogleHistorySheet,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return fmt.Errorf("google sheets client: %w", err)
		}
		exporter = sc
		logger.Info("History export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("History export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewSyncWorker(repo, cloud, exporter, cfg.SyncBatchSize, logger)

	// The poller runs one batch right away, covering states saved while the
	// worker was down.
	poller := services.NewSyncProcessor(w, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval}, logger)
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := poller.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Sync processor stop failed", log.FieldError, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("amqp client: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeStateSync(gctx, w.HandleSyncMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic sync", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}
