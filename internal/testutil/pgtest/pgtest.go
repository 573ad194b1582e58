// Package pgtest provides helpers for tests that need a live PostgreSQL server.
// Tests are skipped unless TEST_DATABASE holds a connection string.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const EnvTestDatabase = "TEST_DATABASE"

// ConnString returns TEST_DATABASE or skips the test.
func ConnString(t testing.TB) string {
	t.Helper()
	connString := os.Getenv(EnvTestDatabase)
	if connString == "" {
		t.Skipf("%s not set", EnvTestDatabase)
	}
	return connString
}

// ParseConfig returns a test connection config with logging
func ParseConfig(t testing.TB) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(ConnString(t))
	require.NoError(t, err)

	config.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		t.Logf("PostgreSQL %s: %s", n.Severity, n.Message)
	}

	return config
}

// Pool opens a pool against TEST_DATABASE that is closed when the test ends.
func Pool(ctx context.Context, t testing.TB) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, ConnString(t))
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	t.Cleanup(pool.Close)
	return pool
}

// WithTx runs fn inside a transaction that is always rolled back, keeping tests isolated.
func WithTx(ctx context.Context, t testing.TB, pool *pgxpool.Pool, fn func(tx pgx.Tx)) {
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	fn(tx)
}
