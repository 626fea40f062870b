// Package dbx holds the minimal database/sql surface the repositories depend
// on, so a repository can run against *sql.DB, *sql.Tx or a sqlmock handle.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is implemented by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NullableBytes returns nil for an empty slice so optional columns are left
// to COALESCE instead of being overwritten with an empty value.
func NullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
