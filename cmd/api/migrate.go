package main

import (
	"github.com/spf13/cobra"

	"clientportal/internal/config"
	"clientportal/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var rollbackSteps int

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to revert")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withDSN(fn func(dsn string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return fn(cfg.DBString)
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDSN(func(dsn string) error {
			if err := database.RunMigrations(dsn); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDSN(func(dsn string) error {
			if err := database.RollbackMigrations(dsn, rollbackSteps); err != nil {
				return err
			}
			cmd.Printf("reverted %d migration(s)\n", rollbackSteps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDSN(func(dsn string) error {
			version, dirty, err := database.MigrationVersion(dsn)
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("version %d (dirty)\n", version)
				return nil
			}
			cmd.Printf("version %d\n", version)
			return nil
		})
	},
}
