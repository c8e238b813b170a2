package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"ledger/internal/core"
)

// ErrDuplicateID mirrors the UNIQUE constraint of the SQL schema.
var ErrDuplicateID = errors.New("duplicate expense id")

// Store keeps expenses in process memory. Records live as long as the
// Store; nothing is written to disk.
type Store struct {
	mu    sync.RWMutex
	seq   int64
	ids   map[string]struct{}
	items []core.Expense // insertion order
}

func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// NewWithItems seeds the store in the given order, assigning fresh sequence
// numbers. Duplicate ids are skipped.
func NewWithItems(items []core.Expense) *Store {
	s := New()
	for _, e := range items {
		if _, dup := s.ids[e.ID]; dup {
			continue
		}
		s.appendLocked(e)
	}
	return s
}

// Insert stores the expense and returns it with its sequence number.
func (s *Store) Insert(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[e.ID]; dup {
		return core.Expense{}, ErrDuplicateID
	}
	return s.appendLocked(e), nil
}

func (s *Store) InsertIfEmpty(_ context.Context, e core.Expense) (core.Expense, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 {
		return core.Expense{}, false, nil
	}
	return s.appendLocked(e), true, nil
}

// List returns a copy of the records sorted by date, then insertion order.
func (s *Store) List(_ context.Context, order core.Order) ([]core.Expense, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := append([]core.Expense(nil), s.items...)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b core.Expense) int {
		return a.Date.Compare(b.Date)
	})
	if order == core.Descending {
		slices.Reverse(out)
	}
	return out, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) appendLocked(e core.Expense) core.Expense {
	s.seq++
	e.Seq = s.seq
	s.ids[e.ID] = struct{}{}
	s.items = append(s.items, e)
	return e
}
