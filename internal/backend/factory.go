package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/services"
	"ledger/internal/storage"
	"ledger/internal/storage/bolt"
	"ledger/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dial is swapped in tests.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(config)
	if err != nil {
		return nil, err
	}

	ledger := services.NewLedger(repo)
	result := &BackendResult{Ledger: ledger}

	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			result.AMQP = client
			if !config.SkipPublisher {
				ledger.AddObserver(amqp.NewPublisher(client))
			}
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := ledger.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"amqp_enabled", result.AMQP != nil)

	return result, nil
}

func (f *DefaultFactory) openRepository(config Config) (storage.Repository, error) {
	switch config.Type {
	case MemoryBackend:
		return memory.New(), nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Connected to Postgres")
		return repo, nil
	case BoltBackend:
		repo, err := bolt.New(config.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bolt repository: %w", err)
		}
		f.logger.Info("Opened bolt database", "db_path", config.BoltDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
