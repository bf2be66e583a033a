package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agentrt/agentrt/internal/config"
	"github.com/agentrt/agentrt/internal/store"
)

var migrationsDirFlag string

// migrateCmd is a thin wrapper over store.Migrate, grounded on the
// teacher's cmd/migrate.go subcommand tree minus the Postgres-specific
// goto/force/drop subcommands, which have no equivalent against a
// single local SQLite file with no "dirty" multi-statement state to
// recover from.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return configErr(err)
			}

			dir := migrationsDirFlag
			if dir == "" {
				dir = "migrations"
			}

			if err := store.Migrate(cfg.DBPathResolved(), dir); err != nil {
				return migrationErr(err)
			}
			slog.Info("migrations applied", "db_path", cfg.DBPathResolved(), "migrations_dir", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDirFlag, "migrations-dir", "", "path to migrations directory (default: ./migrations)")
	return cmd
}
