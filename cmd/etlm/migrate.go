package etlm

import (
	"context"
	"errors"
	"fmt"

	pg "github.com/edgeflare/etlm/pkg/pgx"
	"github.com/edgeflare/etlm/pkg/settings"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the settings schema migrations",
	Long: `Applies pending embedded migrations to the configured PostgreSQL database and records
the version in schema_migrations. Safe to run repeatedly. With --down every migration is reverted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		logger, err := cfg.Log.NewLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := context.Background()
		pool, err := pg.Connect(ctx, pg.Pool{
			ConnString:     cfg.Postgres.ConnectionString(),
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		if migrateDown {
			return settings.MigrateDown(ctx, pool, logger)
		}
		return settings.Migrate(ctx, pool, logger)
	},
}

var migrateDown bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "revert all migrations")
	rootCmd.AddCommand(migrateCmd)
}
