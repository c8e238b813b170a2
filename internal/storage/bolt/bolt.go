// Package bolt stores expenses in a single bbolt file.
//
// Records live in the "expenses" bucket keyed by their big-endian sequence
// number, so a cursor walk yields insertion order. The "expense_ids" bucket
// maps each id to its sequence and enforces uniqueness.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"ledger/internal/core"
)

var (
	// ErrDuplicateID is returned when an id is already stored.
	ErrDuplicateID = errors.New("duplicate expense id")
)

// Bucket names.
const (
	BucketExpenses = "expenses"
	BucketIDs      = "expense_ids"
)

type record struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Amount       decimal.Decimal `json:"amount"`
	DateUnixNano int64           `json:"date_unix_nano"`
}

// Repository is the bbolt-backed expense store.
type Repository struct {
	db *bolt.DB
}

// New opens (or creates) the database file and initializes buckets.
func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketExpenses, BucketIDs} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		seq, err := put(tx, e)
		e.Seq = seq
		return err
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *Repository) InsertIfEmpty(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, false, err
	}
	inserted := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		if k, _ := tx.Bucket([]byte(BucketExpenses)).Cursor().First(); k != nil {
			return nil
		}
		seq, err := put(tx, e)
		if err != nil {
			return err
		}
		e.Seq = seq
		inserted = true
		return nil
	})
	if err != nil {
		return core.Expense{}, false, err
	}
	if !inserted {
		return core.Expense{}, false, nil
	}
	return e, true, nil
}

// List reads every record in one read transaction.
func (r *Repository) List(ctx context.Context, order core.Order) ([]core.Expense, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []core.Expense
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketExpenses)).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode expense %d: %w", btoi(k), err)
			}
			out = append(out, core.Expense{
				ID:     rec.ID,
				Title:  rec.Title,
				Amount: rec.Amount,
				Date:   time.Unix(0, rec.DateUnixNano).UTC(),
				Seq:    btoi(k),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// keys are already in insertion order, so a stable sort keeps ties by seq
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		return a.Date.Compare(b.Date)
	})
	if order == core.Descending {
		slices.Reverse(out)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := r.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(BucketIDs)).Stats().KeyN
		return nil
	})
	return int64(n), err
}

func put(tx *bolt.Tx, e core.Expense) (int64, error) {
	ids := tx.Bucket([]byte(BucketIDs))
	if ids.Get([]byte(e.ID)) != nil {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}

	b := tx.Bucket([]byte(BucketExpenses))
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(record{
		ID:           e.ID,
		Title:        e.Title,
		Amount:       e.Amount,
		DateUnixNano: e.Date.UnixNano(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal expense: %w", err)
	}

	key := itob(int64(seq))
	if err := b.Put(key, data); err != nil {
		return 0, err
	}
	if err := ids.Put([]byte(e.ID), key); err != nil {
		return 0, err
	}
	return int64(seq), nil
}

// itob converts an int64 to a byte slice for use as a bbolt key.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
