// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mamiland/mamiland/internal/config"
	"github.com/mamiland/mamiland/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect database schema migrations.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			RunE:  runMigrateVersion,
		},
	)

	return cmd
}

func openMigrator() (*store.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.NewMigrator(cfg.StoreConfig().URL())
}

func closeMigrator(m *store.Migrator) {
	if err := m.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	cmd.Println("Rolling back migrations...")
	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate version").Wrap(err)
	}

	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}
	if dirty {
		cmd.Printf("Version: %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("Version: %d\n", version)
	return nil
}
