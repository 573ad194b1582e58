package settings

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// Migrate applies pending embedded migrations. A database that is already current is not an error.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return runMigrations(ctx, pool, logger, "up", (*migrate.Migrate).Up)
}

// MigrateDown reverts every applied migration.
func MigrateDown(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return runMigrations(ctx, pool, logger, "down", (*migrate.Migrate).Down)
}

// SchemaVersion returns the applied migration version and whether the last run left it dirty.
// Version is zero when nothing has been applied.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool) (uint, bool, error) {
	m, err := newMigrate(pool, nil)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, direction string, step func(*migrate.Migrate) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := newMigrate(pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrator", zap.Errors("errors", []error{srcErr, dbErr}))
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("schema migrated", zap.String("direction", direction), zap.Uint("version", 0))
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		logger.Info("schema migrated", zap.String("direction", direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

func newMigrate(pool *pgxpool.Pool, logger *zap.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(stdlib.OpenDBFromPool(pool), &pgxmigrate.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("open migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if logger != nil {
		m.Log = migrateLogger{logger.Sugar().Named("migrate")}
	}
	return m, nil
}

// migrateLogger adapts zap to migrate.Logger.
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.Desugar().Core().Enabled(zap.DebugLevel)
}
