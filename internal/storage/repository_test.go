package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/storage"
	"ledger/internal/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
		require.NoError(t, err)
		return repo
	})
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	assert.Equal(t, storage.DialectSQLite, repo.Dialect())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, repo.Close())

	// migrations are idempotent across restarts
	repo, err = storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("LEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_POSTGRES_DSN not set")
	}
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		repo, err := storage.NewPostgresRepository(dsn)
		require.NoError(t, err)
		_, err = repo.DB().ExecContext(context.Background(), "TRUNCATE expenses RESTART IDENTITY")
		require.NoError(t, err)
		return repo
	})
}
