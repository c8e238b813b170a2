package storage

import "testing"

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "SELECT ? , ?", "SELECT ? , ?"},
		{DialectPostgres, "SELECT ? , ?", "SELECT $1 , $2"},
		{DialectPostgres, "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", "VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		q := New(nil, tt.dialect)
		if got := q.rebind(tt.in); got != tt.want {
			t.Errorf("rebind(%q) on %s = %q, want %q", tt.in, tt.dialect, got, tt.want)
		}
	}
}
