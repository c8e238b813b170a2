package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

// TotalsSource is the read side of the ledger the refresher needs.
type TotalsSource interface {
	DailyTotals(ctx context.Context, now time.Time, windowDays int) ([]core.DailyTotal, error)
}

// ChartRefresher recomputes the trailing daily-spend series whenever an
// expense-created event arrives.
type ChartRefresher struct {
	source     TotalsSource
	loc        *time.Location
	windowDays int
	now        func() time.Time

	mu       sync.RWMutex
	last     []core.DailyTotal
	lastID   string
	refreshN int
}

func NewChartRefresher(source TotalsSource, loc *time.Location, windowDays int) *ChartRefresher {
	if loc == nil {
		loc = time.Local
	}
	if windowDays <= 0 {
		windowDays = core.DefaultWindowDays
	}
	return &ChartRefresher{
		source:     source,
		loc:        loc,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// HandleExpenseCreated is an amqp.Handler.
func (w *ChartRefresher) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	slog.InfoContext(ctx, "Processing expense created message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldExpenseID, msg.ID,
		log.FieldAmount, msg.Amount,
		log.FieldDate, msg.Date)

	if _, err := msg.Expense(); err != nil {
		// a malformed amount will never succeed, so don't requeue it forever
		slog.WarnContext(ctx, "Ignoring malformed expense event", "id", msg.ID, "error", err)
		return nil
	}

	totals, err := w.Refresh(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.lastID = msg.ID
	w.mu.Unlock()

	// only the newest day is interesting in the log line
	today := totals[len(totals)-1]
	slog.InfoContext(ctx, "Daily totals refreshed",
		"trigger_id", msg.ID,
		"days", len(totals),
		"today", today.Day.Format(time.DateOnly),
		"today_total", today.Total.StringFixed(2))
	return nil
}

// Refresh recomputes the series now.
func (w *ChartRefresher) Refresh(ctx context.Context) ([]core.DailyTotal, error) {
	totals, err := w.source.DailyTotals(ctx, w.now().In(w.loc), w.windowDays)
	if err != nil {
		return nil, fmt.Errorf("refresh daily totals: %w", err)
	}

	w.mu.Lock()
	w.last = totals
	w.refreshN++
	w.mu.Unlock()
	return totals, nil
}

// Last returns the most recent series and the id of the event that
// triggered it.
func (w *ChartRefresher) Last() ([]core.DailyTotal, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]core.DailyTotal(nil), w.last...), w.lastID
}

// Refreshes reports how many times the series was recomputed.
func (w *ChartRefresher) Refreshes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.refreshN
}
