package core

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParseOrder(t *testing.T) {
	cases := []struct {
		in   string
		want Order
		ok   bool
	}{
		{"", Descending, true},
		{"desc", Descending, true},
		{"DESC", Descending, true},
		{"asc", Ascending, true},
		{" ascending ", Ascending, true},
		{"sideways", "", false},
	}
	for _, tc := range cases {
		got, err := ParseOrder(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidArgument, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, Ascending.Validate())
	assert.NoError(t, Descending.Validate())
	assert.ErrorIs(t, Order("").Validate(), ErrInvalidOrder)
}

func TestParseNewExpense(t *testing.T) {
	d := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	ne, err := ParseNewExpense("  Coffee ", "3.75", d)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", ne.Title)
	assert.True(t, ne.Amount.Equal(decimal.RequireFromString("3.75")))
	assert.True(t, ne.Date.Equal(d))

	bads := []struct {
		title, amount string
		want          error
	}{
		{"", "1", ErrEmptyTitle},
		{"   ", "1", ErrEmptyTitle},
		{"ok", "", ErrInvalidAmount},
		{"ok", "abc", ErrInvalidAmount},
		{"ok", "NaN", ErrInvalidAmount},
		{strings.Repeat("x", MaxTitleLength+1), "1", ErrTitleTooLong},
	}
	for _, tc := range bads {
		_, err := ParseNewExpense(tc.title, tc.amount, d)
		assert.ErrorIs(t, err, tc.want, "title=%q amount=%q", tc.title, tc.amount)
		assert.True(t, errors.Is(err, ErrValidation))
	}
}

func TestParseNewExpenseTitleLengthCountsCharacters(t *testing.T) {
	d := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	ne, err := ParseNewExpense(strings.Repeat("é", MaxTitleLength), "1", d)
	require.NoError(t, err)
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(ne.Title))

	_, err = ParseNewExpense(strings.Repeat("€", MaxTitleLength), "1", d)
	require.NoError(t, err)

	_, err = ParseNewExpense(strings.Repeat("é", MaxTitleLength+1), "1", d)
	assert.ErrorIs(t, err, ErrTitleTooLong)
}

func TestParseDate(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2025-06-10", want: time.Date(2025, 6, 10, 0, 0, 0, 0, rome)},
		{in: "2025-06-10T08:15:00Z", want: time.Date(2025, 6, 10, 8, 15, 0, 0, time.UTC)},
		{in: "2025-06-10T08:15:00.5+02:00", want: time.Date(2025, 6, 10, 6, 15, 0, 500_000_000, time.UTC)},
		{in: "10/06/2025", wantErr: true},
		{in: "2025-13-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, rome)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}
