package main

import (
	"fmt"

	"github.com/Priya8975/webhook-receiver/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, func(url string) (store.MigrationStatus, error) {
				return store.MigrateDown(url, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, store.RunMigrations)
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, store.MigrationVersion)
			},
		},
	)
	return cmd
}

func runMigration(cmd *cobra.Command, op func(databaseURL string) (store.MigrationStatus, error)) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	status, err := op(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	if !status.Applied {
		logger.Info("no migrations applied", "command", cmd.Name())
		fmt.Fprintln(cmd.OutOrStdout(), "version: none")
		return nil
	}
	logger.Info("migration status", "command", cmd.Name(), "version", status.Version, "dirty", status.Dirty)
	fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", status.Version, status.Dirty)
	return nil
}
