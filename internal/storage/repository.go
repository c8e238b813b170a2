package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/core"
	"ledger/internal/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLRepository stores expenses in SQLite or Postgres through database/sql.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
}

var _ Repository = (*SQLRepository)(nil)

// sqliteDSN enables WAL and a busy timeout so the API server and the
// worker can share one database file.
func sqliteDSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, "sqlite", sqliteDSN(dbPath))
}

func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return open(DialectPostgres, "postgres", dsn)
}

func open(dialect Dialect, driverName, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// one writer at a time; WAL still lets other processes read
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dialect, driverName, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLRepository{
		db:      db,
		queries: New(db, dialect),
		dialect: dialect,
	}

	return repo, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for maintenance and tests.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// Dialect reports which database flavour backs the repository.
func (r *SQLRepository) Dialect() Dialect {
	return r.dialect
}

func (r *SQLRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	seq, err := r.queries.CreateExpense(ctx, toParams(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.Seq = seq

	slog.InfoContext(ctx, "Expense saved",
		log.FieldComponent, log.ComponentStorage,
		"dialect", r.dialect,
		log.FieldExpenseID, e.ID,
		"seq", e.Seq,
		log.FieldTitle, e.Title,
		log.FieldAmount, e.Amount.String(),
		log.FieldDate, e.Date)

	return e, nil
}

func (r *SQLRepository) InsertIfEmpty(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.LockExpenses(ctx); err != nil {
		return core.Expense{}, false, fmt.Errorf("lock expenses: %w", err)
	}

	seq, err := q.CreateExpenseIfEmpty(ctx, toParams(e))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, false, nil
	}
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("create seed expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, false, fmt.Errorf("commit seed transaction: %w", err)
	}
	e.Seq = seq

	slog.InfoContext(ctx, "Seed expense saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpSeed,
		"dialect", r.dialect,
		log.FieldExpenseID, e.ID,
		"seq", e.Seq)
	return e, true, nil
}

func (r *SQLRepository) List(ctx context.Context, order core.Order) ([]core.Expense, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListExpenses(ctx, order == core.Descending)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, core.Expense{
			ID:     row.ID,
			Title:  row.Title,
			Amount: row.Amount,
			Date:   row.Date(),
			Seq:    row.Seq,
		})
	}
	return expenses, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func toParams(e core.Expense) CreateExpenseParams {
	return CreateExpenseParams{
		ID:           e.ID,
		Title:        e.Title,
		Amount:       e.Amount,
		DateUnixNano: e.Date.UnixNano(),
	}
}
