package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage"
	"ledger/internal/storage/bolt"
	"ledger/internal/storage/storagetest"
)

func TestRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		repo, err := bolt.New(filepath.Join(t.TempDir(), "ledger.bolt"))
		require.NoError(t, err)
		return repo
	})
}

func TestRepositoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.bolt")
	d := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	repo, err := bolt.New(path)
	require.NoError(t, err)
	saved, err := repo.Insert(ctx, core.Expense{ID: "a", Title: "Lunch", Amount: decimal.RequireFromString("12.50"), Date: d})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = bolt.New(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.List(ctx, core.Ascending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, saved.Seq, got[0].Seq)
	assert.Equal(t, "12.5", got[0].Amount.String())
	assert.True(t, got[0].Date.Equal(d))

	_, err = repo.Insert(ctx, core.Expense{ID: "a", Title: "again", Amount: decimal.NewFromInt(1), Date: d})
	assert.ErrorIs(t, err, bolt.ErrDuplicateID)
}
