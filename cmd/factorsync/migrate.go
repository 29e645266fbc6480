package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"factorsync/db"
	"factorsync/internal/config"
)

func newMigrateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the PostgreSQL schema migrations",
		Long: `Apply or revert the PostgreSQL schema migrations embedded in the binary.
A SQLite store creates its schema when it is opened and needs no migration.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(configFile, func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				if err := ignoreNoChange(m.Up()); err != nil {
					return fmt.Errorf("migration up failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(configFile, func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				if err := ignoreNoChange(m.Down()); err != nil {
					return fmt.Errorf("migration down failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations reverted successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply (N > 0) or revert (N < 0) N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(configFile, func(cmd *cobra.Command, m *migrate.Migrate, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps argument: %w", err)
				}
				if err := ignoreNoChange(m.Steps(n)); err != nil {
					return fmt.Errorf("migration steps failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration steps\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(configFile, func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

type migrateFunc func(cmd *cobra.Command, m *migrate.Migrate, args []string) error

func withMigrator(configFile *string, fn migrateFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.DB.Driver != "postgres" {
			return fmt.Errorf("migrations target postgres, the %s store creates its schema when opened", cfg.DB.Driver)
		}

		src, err := iofs.New(db.Migrations, "migrations")
		if err != nil {
			return fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(&cfg.DB))
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		defer m.Close()

		return fn(cmd, m, args)
	}
}

// migrateURL rewrites the DSN for the pgx/v5 migrate driver.
func migrateURL(cfg *config.DBConfig) string {
	u, err := url.Parse(cfg.DSN())
	if err != nil {
		return cfg.DSN()
	}
	u.Scheme = "pgx5"
	return u.String()
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
