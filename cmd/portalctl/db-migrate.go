package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/db"
)

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

This command runs all pending database migrations to bring the schema
up to date. Migrations are embedded in the binary.

Example:
  portalctl db migrate`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrations(zap.NewNop()); err != nil {
			fail("Migration failed: %v", err)
		}
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  portalctl db down      # Rollback 1 migration
  portalctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				fail("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}

		if err := runMigrationsDown(steps); err != nil {
			fail("Rollback failed: %v", err)
		}
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showMigrationStatus(); err != nil {
			fail("Failed to get status: %v", err)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}

func runMigrations(logger *zap.Logger) error {
	m, err := db.NewMigrator(db.URL())
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	before, err := m.Status()
	if err != nil {
		return err
	}
	fmt.Printf("Current version: %d (dirty: %v)\n", before.Version, before.Dirty)

	changed, err := m.Up()
	if err != nil {
		return err
	}
	if !changed {
		fmt.Println("No migrations to run - database is up to date")
		return nil
	}

	after, err := m.Status()
	if err != nil {
		return err
	}
	logger.Info("database migrated", zap.Uint("from", before.Version), zap.Uint("to", after.Version))
	fmt.Printf("Migrated to version: %d\n", after.Version)
	return nil
}

func runMigrationsDown(steps int) error {
	m, err := db.NewMigrator(db.URL())
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	fmt.Printf("Rolling back %d migration(s)...\n", steps)
	if err := m.Down(steps); err != nil {
		return err
	}

	status, err := m.Status()
	if err != nil {
		return err
	}
	if !status.Applied {
		fmt.Println("Rolled back every migration")
		return nil
	}
	fmt.Printf("Rolled back to version: %d\n", status.Version)
	return nil
}

func showMigrationStatus() error {
	m, err := db.NewMigrator(db.URL())
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	status, err := m.Status()
	if err != nil {
		return err
	}
	if !status.Applied {
		fmt.Println("No migrations have been applied yet")
		return nil
	}

	files, err := db.MigrationFiles()
	if err != nil {
		return err
	}
	fmt.Printf("Current version: %d (%d migrations embedded)\n", status.Version, len(files))
	if status.Dirty {
		fmt.Println("Warning: Database is in a dirty state")
	}
	return nil
}
