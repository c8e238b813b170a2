package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

type failingSource struct{}

func (failingSource) DailyTotals(context.Context, time.Time, int) ([]core.DailyTotal, error) {
	return nil, core.ErrPersistence
}

func TestChartRefresherHandlesEvent(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewLedger(memory.New())
	d := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	saved, err := ledger.Insert(ctx, "Coffee", decimal.RequireFromString("3.75"), &d)
	require.NoError(t, err)

	w := NewChartRefresher(ledger, time.UTC, 7)
	w.now = func() time.Time { return time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC) }

	err = w.HandleExpenseCreated(ctx, amqp.NewExpenseCreatedMessage(saved))
	require.NoError(t, err)

	totals, id := w.Last()
	assert.Equal(t, saved.ID, id)
	require.Len(t, totals, 7)
	assert.Equal(t, "3.75", totals[6].Total.String())
	assert.Equal(t, 1, w.Refreshes())
}

func TestChartRefresherUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ledger := services.NewLedger(memory.New())
	w := NewChartRefresher(ledger, loc, 3)
	w.now = func() time.Time { return time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC) }

	totals, err := w.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 3)
	// 23:00 UTC is already June 11 at UTC+2
	assert.True(t, totals[2].Day.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, loc)))
}

func TestChartRefresherDefaults(t *testing.T) {
	w := NewChartRefresher(failingSource{}, nil, 0)
	assert.Equal(t, core.DefaultWindowDays, w.windowDays)
	assert.Equal(t, time.Local, w.loc)
}

func TestChartRefresherSourceError(t *testing.T) {
	w := NewChartRefresher(failingSource{}, time.UTC, 7)
	err := w.HandleExpenseCreated(context.Background(), &amqp.ExpenseCreatedMessage{ID: "x", Amount: "1"})
	assert.True(t, errors.Is(err, core.ErrPersistence))
	assert.Zero(t, w.Refreshes())
}

func TestChartRefresherDropsMalformedAmount(t *testing.T) {
	w := NewChartRefresher(failingSource{}, time.UTC, 7)
	err := w.HandleExpenseCreated(context.Background(), &amqp.ExpenseCreatedMessage{ID: "x", Amount: "NaN"})
	assert.NoError(t, err)
	assert.Zero(t, w.Refreshes())
}

func TestChartRefresherLogsEventFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := NewChartRefresher(services.NewLedger(memory.New()), time.UTC, 1)
	w.now = func() time.Time { return time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC) }
	msg := &amqp.ExpenseCreatedMessage{
		ID:     "e-1",
		Title:  "Coffee",
		Amount: "3.75",
		Date:   time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, w.HandleExpenseCreated(context.Background(), msg))

	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "Processing expense created message", entry["msg"])
	assert.Equal(t, log.ComponentWorker, entry[log.FieldComponent])
	assert.Equal(t, "e-1", entry[log.FieldExpenseID])
	assert.Equal(t, "2025-06-10T08:00:00Z", entry[log.FieldDate])
}
