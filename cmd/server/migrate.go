package main

import (
	"fmt"

	"github.com/spf13/cobra"

	config "github.com/avatarctic/volunteer-hub/configs"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/db"
)

func migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cfg.Log)
			if path == "" {
				path = cfg.Database.MigrationsPath
			}

			database, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			version, err := database.Migrate(path)
			if err != nil {
				return err
			}
			logger.WithField("version", version).Info("Migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Migrations directory (defaults to DB_MIGRATIONS_PATH)")
	return cmd
}
