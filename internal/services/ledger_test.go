package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage/memory"
)

var errDiskFull = errors.New("disk full")

// failingRepo fails every call after the wrapped store.
type failingRepo struct {
	*memory.Store
	fail bool
}

func (r *failingRepo) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if r.fail {
		return core.Expense{}, errDiskFull
	}
	return r.Store.Insert(ctx, e)
}

func (r *failingRepo) InsertIfEmpty(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	if r.fail {
		return core.Expense{}, false, errDiskFull
	}
	return r.Store.InsertIfEmpty(ctx, e)
}

func (r *failingRepo) List(ctx context.Context, o core.Order) ([]core.Expense, error) {
	if r.fail {
		return nil, errDiskFull
	}
	return r.Store.List(ctx, o)
}

func (r *failingRepo) Count(ctx context.Context) (int64, error) {
	if r.fail {
		return 0, errDiskFull
	}
	return r.Store.Count(ctx)
}

// slowRepo parks Insert until release is closed.
type slowRepo struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (r *slowRepo) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	close(r.entered)
	<-r.release
	return r.Store.Insert(ctx, e)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedgerInsertUniqueIDs(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())

	seen := make(map[string]bool)
	for range 100 {
		e, err := l.Insert(ctx, "x", decimal.NewFromInt(1), nil)
		require.NoError(t, err)
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}

	items, err := l.ListAll(ctx, core.Descending)
	require.NoError(t, err)
	assert.Len(t, items, 100)
}

func TestLedgerInsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())
	d := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	saved, err := l.Insert(ctx, "Coffee", decimal.RequireFromString("3.75"), &d)
	require.NoError(t, err)

	items, err := l.ListAll(ctx, core.Descending)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, saved.ID, items[0].ID)
	assert.Equal(t, "Coffee", items[0].Title)
	assert.Equal(t, "3.75", items[0].Amount.String())
	assert.True(t, items[0].Date.Equal(d))
}

func TestLedgerInsertDefaultsDateToClock(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	l := NewLedger(memory.New())
	l.SetClock(fixedClock(now))

	e, err := l.Insert(context.Background(), "Lunch", decimal.NewFromInt(12), nil)
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(now))

	e, err = l.Create(context.Background(), core.NewExpense{Title: "Tea", Amount: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(now))
}

func TestLedgerInsertAcceptsUnusualAmounts(t *testing.T) {
	l := NewLedger(memory.New())
	for _, a := range []string{"0", "-5.50", "123456789.123456789"} {
		e, err := l.Insert(context.Background(), "x", decimal.RequireFromString(a), nil)
		require.NoError(t, err)
		assert.True(t, e.Amount.Equal(decimal.RequireFromString(a)))
	}
}

func TestLedgerOrderIsExactReverse(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())
	d := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		date := d.AddDate(0, 0, i%2)
		_, err := l.Insert(ctx, "x", decimal.NewFromInt(int64(i)), &date)
		require.NoError(t, err)
	}

	asc, err := l.ListAll(ctx, core.Ascending)
	require.NoError(t, err)
	desc, err := l.ListAll(ctx, core.Descending)
	require.NoError(t, err)
	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i].ID, desc[len(desc)-1-i].ID)
	}
	for i := 1; i < len(asc); i++ {
		assert.False(t, asc[i].Date.Before(asc[i-1].Date))
	}
}

func TestLedgerListAllEmpty(t *testing.T) {
	l := NewLedger(memory.New())
	items, err := l.ListAll(context.Background(), core.Descending)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = l.ListAll(context.Background(), core.Order("up"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestLedgerIsEmpty(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())

	empty, err := l.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = l.Insert(ctx, "x", decimal.NewFromInt(1), nil)
	require.NoError(t, err)
	empty, err = l.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestLedgerSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	l := NewLedger(memory.New())
	l.SetClock(fixedClock(now))

	seed, inserted, err := l.SeedIfEmpty(ctx, DefaultSeed)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "Coffee", seed.Title)
	assert.Equal(t, "3.75", seed.Amount.String())
	assert.True(t, seed.Date.Equal(now))

	_, inserted, err = l.SeedIfEmpty(ctx, DefaultSeed)
	require.NoError(t, err)
	assert.False(t, inserted)

	items, err := l.ListAll(ctx, core.Descending)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLedgerSeedIfEmptySkipsNonEmpty(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())
	_, err := l.Insert(ctx, "Rent", decimal.NewFromInt(900), nil)
	require.NoError(t, err)

	_, inserted, err := l.SeedIfEmpty(ctx, DefaultSeed)
	require.NoError(t, err)
	assert.False(t, inserted)

	items, err := l.ListAll(ctx, core.Descending)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rent", items[0].Title)
}

func TestLedgerSeedIfEmptyConcurrent(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.SeedIfEmpty(ctx, DefaultSeed)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := l.ListAll(ctx, core.Ascending)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLedgerPersistenceErrors(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{Store: memory.New(), fail: true}
	l := NewLedger(repo)

	var notified bool
	l.AddObserver(ObserverFunc(func(context.Context, core.Expense) error {
		notified = true
		return nil
	}))

	_, err := l.Insert(ctx, "x", decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.ErrorIs(t, err, errDiskFull)
	assert.False(t, notified)

	_, err = l.ListAll(ctx, core.Ascending)
	assert.ErrorIs(t, err, core.ErrPersistence)

	_, err = l.IsEmpty(ctx)
	assert.ErrorIs(t, err, core.ErrPersistence)

	_, _, err = l.SeedIfEmpty(ctx, DefaultSeed)
	assert.ErrorIs(t, err, core.ErrPersistence)

	_, err = l.DailyTotals(ctx, time.Now(), 7)
	assert.ErrorIs(t, err, core.ErrPersistence)

	// nothing became visible
	repo.fail = false
	items, err := l.ListAll(ctx, core.Ascending)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLedgerObservers(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())

	var got []string
	l.AddObserver(ObserverFunc(func(_ context.Context, e core.Expense) error {
		got = append(got, e.Title)
		return errors.New("broker down")
	}))
	l.AddObserver(ObserverFunc(func(_ context.Context, e core.Expense) error {
		got = append(got, "second:"+e.Title)
		return nil
	}))

	// observer failure does not fail the insert
	_, err := l.Insert(ctx, "Coffee", decimal.RequireFromString("3.75"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coffee", "second:Coffee"}, got)

	_, _, err = l.SeedIfEmpty(ctx, DefaultSeed)
	require.NoError(t, err)
	assert.Len(t, got, 2, "skipped seed must not notify")
}

func TestLedgerDailyTotals(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(memory.New())
	d1 := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 5, 20, 0, 0, 0, time.UTC)
	_, err := l.Insert(ctx, "Coffee", decimal.RequireFromString("3.75"), &d1)
	require.NoError(t, err)
	_, err = l.Insert(ctx, "Dinner", decimal.RequireFromString("12.00"), &d2)
	require.NoError(t, err)

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	totals, err := l.DailyTotals(ctx, now, core.DefaultWindowDays)
	require.NoError(t, err)
	require.Len(t, totals, 7)
	assert.True(t, totals[0].Day.Equal(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12", totals[1].Total.String())
	assert.Equal(t, "3.75", totals[6].Total.String())
	for _, i := range []int{0, 2, 3, 4, 5} {
		assert.True(t, totals[i].Total.IsZero())
	}

	_, err = l.DailyTotals(ctx, now, 0)
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
	_, err = l.DailyTotals(ctx, time.Time{}, 7)
	assert.ErrorIs(t, err, core.ErrInvalidNow)
}

func TestLedgerClose(t *testing.T) {
	assert.NoError(t, NewLedger(memory.New()).Close())
	assert.NoError(t, (&Ledger{}).Close())
}

func TestLedgerNowDoesNotWaitForInsert(t *testing.T) {
	repo := &slowRepo{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	l := NewLedger(repo)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(now))

	done := make(chan error, 1)
	go func() {
		_, err := l.Insert(context.Background(), "Coffee", decimal.RequireFromString("3.75"), nil)
		done <- err
	}()
	<-repo.entered

	got := make(chan time.Time, 1)
	go func() { got <- l.Now() }()
	select {
	case ts := <-got:
		assert.True(t, ts.Equal(now))
	case <-time.After(time.Second):
		t.Error("Now blocked behind an in-flight insert")
	}

	close(repo.release)
	require.NoError(t, <-done)
}
