package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

type (
	// Order selects the date ordering of a ledger listing.
	Order string

	Expense struct {
		ID     string
		Title  string
		Amount decimal.Decimal
		Date   time.Time
		Seq    int64 // insertion sequence, assigned by the backend
	}

	// NewExpense is the validated input for an insert. A zero Date means "now".
	NewExpense struct {
		Title  string
		Amount decimal.Decimal
		Date   time.Time
	}
)

var (
	ErrValidation      = errors.New("validation error")
	ErrPersistence     = errors.New("persistence error")
	ErrInvalidArgument = errors.New("invalid argument")

	ErrEmptyTitle    = fmt.Errorf("%w: empty title", ErrValidation)
	ErrTitleTooLong  = fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, MaxTitleLength)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate   = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidWindow = fmt.Errorf("%w: window days must be positive", ErrInvalidArgument)
	ErrInvalidNow    = fmt.Errorf("%w: reference time is zero", ErrInvalidArgument)
	ErrInvalidOrder  = fmt.Errorf("%w: unknown order", ErrInvalidArgument)
)

const MaxTitleLength = 200

// NewID returns a fresh opaque expense identifier.
func NewID() string {
	return uuid.NewString()
}

func (o Order) Validate() error {
	switch o {
	case Ascending, Descending:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidOrder, string(o))
	}
}

// ParseOrder maps user input to an Order. Empty input means Descending,
// the list view default.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidOrder, s)
	}
}

func (e NewExpense) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// ParseNewExpense is the caller-side boundary check: it trims the title,
// parses the amount text and rejects anything the store must never see.
func ParseNewExpense(title, amountText string, date time.Time) (NewExpense, error) {
	amount, err := ParseAmount(amountText)
	if err != nil {
		return NewExpense{}, err
	}
	ne := NewExpense{
		Title:  strings.TrimSpace(title),
		Amount: amount,
		Date:   date,
	}
	if err := ne.Validate(); err != nil {
		return NewExpense{}, err
	}
	return ne, nil
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD, which means
// midnight in loc. Empty input yields the zero time, which inserts treat
// as now.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w %q: use RFC 3339 or YYYY-MM-DD", ErrInvalidDate, s)
}
