package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dialect selects the SQL flavour used by a repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the typed statements for one dialect.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Expense is the row shape of the expenses table.
type Expense struct {
	Seq          int64
	ID           string
	Title        string
	Amount       decimal.Decimal
	DateUnixNano int64
}

func (e Expense) Date() time.Time {
	return time.Unix(0, e.DateUnixNano).UTC()
}

type CreateExpenseParams struct {
	ID           string
	Title        string
	Amount       decimal.Decimal
	DateUnixNano int64
}

const createExpense = `INSERT INTO expenses (id, title, amount, date_unix_nano)
VALUES (?, ?, ?, ?)
RETURNING seq`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createExpense), arg.ID, arg.Title, q.amountArg(arg.Amount), arg.DateUnixNano)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const createExpenseIfEmptySQLite = `INSERT INTO expenses (id, title, amount, date_unix_nano)
SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS INTEGER)
WHERE NOT EXISTS (SELECT 1 FROM expenses)
RETURNING seq`

const createExpenseIfEmptyPostgres = `INSERT INTO expenses (id, title, amount, date_unix_nano)
SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS NUMERIC), CAST(? AS BIGINT)
WHERE NOT EXISTS (SELECT 1 FROM expenses)
RETURNING seq`

// CreateExpenseIfEmpty returns sql.ErrNoRows when the table already holds rows.
func (q *Queries) CreateExpenseIfEmpty(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	query := createExpenseIfEmptySQLite
	if q.dialect == DialectPostgres {
		query = createExpenseIfEmptyPostgres
	}
	row := q.db.QueryRowContext(ctx, q.rebind(query), arg.ID, arg.Title, q.amountArg(arg.Amount), arg.DateUnixNano)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const lockExpensesPostgres = `LOCK TABLE expenses IN SHARE ROW EXCLUSIVE MODE`

// LockExpenses serializes seed writers on Postgres. SQLite already takes a
// database-wide write lock per statement, so it is a no-op there.
func (q *Queries) LockExpenses(ctx context.Context) error {
	if q.dialect != DialectPostgres {
		return nil
	}
	_, err := q.db.ExecContext(ctx, lockExpensesPostgres)
	return err
}

const listExpensesAsc = `SELECT seq, id, title, amount, date_unix_nano
FROM expenses
ORDER BY date_unix_nano ASC, seq ASC`

const listExpensesDesc = `SELECT seq, id, title, amount, date_unix_nano
FROM expenses
ORDER BY date_unix_nano DESC, seq DESC`

func (q *Queries) ListExpenses(ctx context.Context, descending bool) ([]Expense, error) {
	query := listExpensesAsc
	if descending {
		query = listExpensesDesc
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.Seq, &i.ID, &i.Title, &i.Amount, &i.DateUnixNano); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// amountArg keeps amounts textual on SQLite so they never pass through REAL.
func (q *Queries) amountArg(d decimal.Decimal) interface{} {
	return d.String()
}

// rebind rewrites ? placeholders to $N for Postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
