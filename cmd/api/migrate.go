package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"startup-apply/internal/config"
	"startup-apply/internal/db"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabaseConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return db.MigrateUp(cfg.DatabaseURL)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the last migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabaseConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return db.MigrateDown(cfg.DatabaseURL, steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}
