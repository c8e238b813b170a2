package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, os.Stdout, log.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	res, err := cli.OpenLedger(ctx, logger, cfg, false)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Ledger cleanup failed", "error", err)
		}
	}()

	if cfg.SeedDemo {
		if _, seeded, err := res.Ledger.SeedIfEmpty(ctx, services.DefaultSeed); err != nil {
			logger.Error("Failed to seed ledger", "error", err, log.FieldOperation, log.OpSeed)
		} else if seeded {
			logger.Info("Seeded demo expense", log.FieldOperation, log.OpSeed)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, apphttp.Options{
		Location:   loc,
		WindowDays: cfg.ChartWindowDays,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	res.Ledger.AddObserver(srv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", loc.String(),
			"events", res.AMQP != nil)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down ledger server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully",
		log.FieldOperation, log.OpShutdown,
		"rate_limit_hits", srv.SecurityStats().RateLimitHits)
}
