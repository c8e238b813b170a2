package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWindowDays is the chart window used when callers don't pick one.
const DefaultWindowDays = 7

// DailyTotal is the spend for one calendar day. Day is the start of that
// day in the reference location.
type DailyTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// StartOfDay truncates t to midnight of its calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow returns the windowDays calendar days ending with now's day,
// oldest first. Days are computed with calendar arithmetic so a DST
// transition yields a 23 or 25 hour day rather than a shifted midnight.
func DayWindow(now time.Time, windowDays int) ([]time.Time, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}
	if now.IsZero() {
		return nil, ErrInvalidNow
	}

	today := StartOfDay(now)
	days := make([]time.Time, windowDays)
	for i := range windowDays {
		days[i] = today.AddDate(0, 0, i-(windowDays-1))
	}
	return days, nil
}

// DailyTotals buckets records into the trailing window ending at now's
// calendar day. Each bucket is [day start, next day start). The result
// always has windowDays entries ordered oldest to newest; days without
// spend carry a zero total. Records outside the window are ignored.
func DailyTotals(now time.Time, windowDays int, records []Expense) ([]DailyTotal, error) {
	days, err := DayWindow(now, windowDays)
	if err != nil {
		return nil, err
	}

	out := make([]DailyTotal, len(days))
	for i, d := range days {
		out[i] = DailyTotal{Day: d, Total: decimal.Zero}
	}

	first := days[0]
	end := days[len(days)-1].AddDate(0, 0, 1)
	for _, r := range records {
		if r.Date.Before(first) || !r.Date.Before(end) {
			continue
		}
		// index of the last day start <= r.Date
		i := sort.Search(len(days), func(i int) bool { return days[i].After(r.Date) }) - 1
		out[i].Total = out[i].Total.Add(r.Amount)
	}
	return out, nil
}
