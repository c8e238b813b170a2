package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger and the resources behind it.
type BackendResult struct {
	Ledger *services.Ledger
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string
	BoltDBPath   string

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// SkipPublisher opens the AMQP client without registering the
	// publishing observer. The worker consumes, it doesn't publish.
	SkipPublisher bool
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	BoltBackend     BackendType = "bolt"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, BoltBackend:
		return true
	default:
		return false
	}
}
