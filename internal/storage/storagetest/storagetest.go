// Package storagetest holds the behaviour every storage.Repository must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Factory returns an empty repository. Run closes it when the subtest ends.
type Factory func(t *testing.T) storage.Repository

func Run(t *testing.T, newRepo Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(*testing.T, storage.Repository)
	}{
		{"InsertAndRoundTrip", testRoundTrip},
		{"SequencesIncrease", testSequences},
		{"OrderingAndTies", testOrdering},
		{"Snapshot", testSnapshot},
		{"InsertIfEmpty", testInsertIfEmpty},
		{"ConcurrentInsertIfEmpty", testConcurrentInsertIfEmpty},
		{"UnknownOrder", testUnknownOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			t.Cleanup(func() { _ = repo.Close() })
			tt.fn(t, repo)
		})
	}
}

func expense(title, amount string, date time.Time) core.Expense {
	return core.Expense{
		ID:     core.NewID(),
		Title:  title,
		Amount: decimal.RequireFromString(amount),
		Date:   date,
	}
}

func testRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	d := time.Date(2025, 6, 10, 8, 15, 30, 123456789, time.UTC)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	saved, err := repo.Insert(ctx, expense("Coffee", "3.75", d))
	require.NoError(t, err)
	assert.NotZero(t, saved.Seq)

	got, err := repo.List(ctx, core.Descending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, saved.ID, got[0].ID)
	assert.Equal(t, "Coffee", got[0].Title)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("3.75")), "amount %s", got[0].Amount)
	assert.True(t, got[0].Date.Equal(d), "date %s want %s", got[0].Date, d)
	assert.Equal(t, saved.Seq, got[0].Seq)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testSequences(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var last int64
	for i := range 10 {
		saved, err := repo.Insert(ctx, expense("e", "1", base.Add(-time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		assert.Greater(t, saved.Seq, last)
		last = saved.Seq
	}
}

func testOrdering(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	d1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// inserted out of date order, with a tie on d2
	var ids []string
	for _, e := range []core.Expense{
		expense("b1", "2", d2),
		expense("a", "1", d1),
		expense("b2", "3", d2),
	} {
		saved, err := repo.Insert(ctx, e)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	asc, err := repo.List(ctx, core.Ascending)
	require.NoError(t, err)
	desc, err := repo.List(ctx, core.Descending)
	require.NoError(t, err)

	assert.Equal(t, []string{ids[1], ids[0], ids[2]}, titlesOrIDs(asc))
	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i].ID, desc[len(desc)-1-i].ID, "descending must reverse ascending at %d", i)
	}
}

func testSnapshot(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.Insert(ctx, expense("first", "1", now))
	require.NoError(t, err)

	snap, err := repo.List(ctx, core.Ascending)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, expense("second", "2", now))
	require.NoError(t, err)
	assert.Len(t, snap, 1)

	again, err := repo.List(ctx, core.Ascending)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func testInsertIfEmpty(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	saved, inserted, err := repo.InsertIfEmpty(ctx, expense("Coffee", "3.75", now))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, saved.Seq)

	_, inserted, err = repo.InsertIfEmpty(ctx, expense("Coffee", "3.75", now))
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testConcurrentInsertIfEmpty(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.InsertIfEmpty(ctx, expense("Coffee", "3.75", now))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testUnknownOrder(t *testing.T, repo storage.Repository) {
	_, err := repo.List(context.Background(), core.Order("sideways"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func titlesOrIDs(es []core.Expense) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
