package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Observer is notified after an expense has been durably stored.
type Observer interface {
	OnExpenseCreated(ctx context.Context, e core.Expense) error
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, e core.Expense) error

func (f ObserverFunc) OnExpenseCreated(ctx context.Context, e core.Expense) error {
	return f(ctx, e)
}

// DefaultSeed is the record written by SeedIfEmpty when callers have no
// seed of their own. A zero Date means "now".
var DefaultSeed = core.NewExpense{
	Title:  "Coffee",
	Amount: decimal.RequireFromString("3.75"),
}

// Ledger is the expense store used by every entry point. Writes are
// serialized; reads go straight to the repository.
type Ledger struct {
	repo storage.Repository

	clockMu sync.RWMutex
	now     func() time.Time

	mu sync.Mutex // serializes writes

	obsMu     sync.RWMutex
	observers []Observer
}

func NewLedger(repo storage.Repository) *Ledger {
	return &Ledger{
		repo: repo,
		now:  time.Now,
	}
}

// SetClock replaces the clock used for default dates.
func (l *Ledger) SetClock(now func() time.Time) {
	l.clockMu.Lock()
	defer l.clockMu.Unlock()
	l.now = now
}

// Now returns the ledger clock's current time. It never waits on a write.
func (l *Ledger) Now() time.Time {
	l.clockMu.RLock()
	now := l.now
	l.clockMu.RUnlock()
	return now()
}

// AddObserver registers o for insert notifications.
func (l *Ledger) AddObserver(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, o)
}

// Insert stores a new expense with a fresh id. A nil date means now.
// The amount is taken as given; callers validate input with
// core.ParseNewExpense first.
func (l *Ledger) Insert(ctx context.Context, title string, amount decimal.Decimal, date *time.Time) (core.Expense, error) {
	l.mu.Lock()
	e := core.Expense{
		ID:     core.NewID(),
		Title:  title,
		Amount: amount,
	}
	if date != nil {
		e.Date = *date
	} else {
		e.Date = l.Now()
	}
	saved, err := l.repo.Insert(ctx, e)
	l.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to store expense", "id", e.ID, "error", err)
		return core.Expense{}, persistence("insert expense", err)
	}

	l.notify(ctx, saved)
	return saved, nil
}

// Create inserts a validated boundary value. A zero Date means now.
func (l *Ledger) Create(ctx context.Context, ne core.NewExpense) (core.Expense, error) {
	var date *time.Time
	if !ne.Date.IsZero() {
		date = &ne.Date
	}
	return l.Insert(ctx, ne.Title, ne.Amount, date)
}

// ListAll returns every expense ordered by date; equal dates keep
// insertion order when ascending and the reverse when descending.
func (l *Ledger) ListAll(ctx context.Context, order core.Order) ([]core.Expense, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	items, err := l.repo.List(ctx, order)
	if err != nil {
		return nil, persistence("list expenses", err)
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

func (l *Ledger) IsEmpty(ctx context.Context) (bool, error) {
	n, err := l.repo.Count(ctx)
	if err != nil {
		return false, persistence("count expenses", err)
	}
	return n == 0, nil
}

// SeedIfEmpty inserts def only when the ledger holds no records. The check
// and the insert happen in one repository transaction, so repeated or
// concurrent calls store at most one seed. The bool reports whether the
// seed was written.
func (l *Ledger) SeedIfEmpty(ctx context.Context, def core.NewExpense) (core.Expense, bool, error) {
	l.mu.Lock()
	e := core.Expense{
		ID:     core.NewID(),
		Title:  def.Title,
		Amount: def.Amount,
		Date:   def.Date,
	}
	if e.Date.IsZero() {
		e.Date = l.Now()
	}
	saved, inserted, err := l.repo.InsertIfEmpty(ctx, e)
	l.mu.Unlock()
	if err != nil {
		return core.Expense{}, false, persistence("seed expense", err)
	}
	if !inserted {
		slog.DebugContext(ctx, "Ledger not empty, seed skipped")
		return core.Expense{}, false, nil
	}

	slog.InfoContext(ctx, "Seeded empty ledger", "id", saved.ID, "title", saved.Title)
	l.notify(ctx, saved)
	return saved, true, nil
}

// DailyTotals reports the trailing windowDays of spend ending at now's
// calendar day in now's location.
func (l *Ledger) DailyTotals(ctx context.Context, now time.Time, windowDays int) ([]core.DailyTotal, error) {
	if _, err := core.DayWindow(now, windowDays); err != nil {
		return nil, err
	}
	items, err := l.ListAll(ctx, core.Ascending)
	if err != nil {
		return nil, err
	}
	return core.DailyTotals(now, windowDays, items)
}

func (l *Ledger) Close() error {
	if l.repo == nil {
		return nil
	}
	if err := l.repo.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

func (l *Ledger) notify(ctx context.Context, e core.Expense) {
	l.obsMu.RLock()
	observers := append([]Observer(nil), l.observers...)
	l.obsMu.RUnlock()

	for _, o := range observers {
		if err := o.OnExpenseCreated(ctx, e); err != nil {
			slog.WarnContext(ctx, "Expense observer failed", "id", e.ID, "error", err)
		}
	}
}

func persistence(op string, err error) error {
	if errors.Is(err, core.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", core.ErrPersistence, op, err)
}
