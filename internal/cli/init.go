// Package cli provides common initialization for the ledger binaries.
// cmd/ledger, cmd/ledger-worker and cmd/ledgerctl share it.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/log"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. A nil w means stdout.
func SetupLogger(cfg *config.Config, w io.Writer, component string) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is unusable. The bootstrap logger writes to stderr before the configured
// one exists.
func LoadAndValidateConfig() *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger opens the configured backend. The caller owns result.Cleanup.
func OpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config, skipPublisher bool) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.SkipPublisher = skipPublisher

	factory := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	result, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	logger.InfoContext(ctx, "Ledger backend ready", "backend", bcfg.Type)
	return result, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop releases the signal handler.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
