package storage

import (
	"context"

	"ledger/internal/core"
)

// Repository is the durable expense collection behind the ledger.
// Implementations assign Seq on insert and never reuse it.
type Repository interface {
	// Insert persists e and returns it with Seq set. Nothing is visible to
	// readers unless the write committed.
	Insert(ctx context.Context, e core.Expense) (core.Expense, error)

	// InsertIfEmpty persists e only when the collection holds no records.
	// The check and the write happen in one storage transaction.
	InsertIfEmpty(ctx context.Context, e core.Expense) (core.Expense, bool, error)

	// List returns every record ordered by Date then Seq; Descending is the
	// exact reverse of Ascending.
	List(ctx context.Context, order core.Order) ([]core.Expense, error)

	Count(ctx context.Context) (int64, error)

	Close() error
}
