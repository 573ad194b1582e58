package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the subset of query methods shared by *pgx.Conn, *pgxpool.Pool, *pgxpool.Conn and
// pgx.Tx, so the same code runs against a pool in production and a rolled-back transaction
// in tests.
type Conn interface {
	// Exec executes a SQL statement and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SQL query and returns the result rows.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until the row's Scan is called.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
