package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, os.Stdout, log.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting ledger-worker")

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	// The worker only reads; the server owns publishing.
	res, err := cli.OpenLedger(ctx, logger, cfg, true)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Ledger cleanup failed", "error", err)
		}
	}()
	if res.AMQP == nil {
		logger.Error("AMQP broker unavailable", "url_set", cfg.AMQPURL != "")
		os.Exit(1)
	}

	refresher := worker.NewChartRefresher(res.Ledger, loc, cfg.ChartWindowDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Prime the series so the first log line reflects the store.
		if _, err := refresher.Refresh(gctx); err != nil {
			logger.Warn("Initial chart refresh failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return res.AMQP.ConsumeWithRetry(gctx, refresher.HandleExpenseCreated)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", "refreshes", refresher.Refreshes())
}
