package main

import (
	"fmt"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the chart of accounts",
	Long: `Create the tables for the configured DATABASE_DRIVER (postgres, pgx or
sqlite3) and seed the chart of accounts. Safe to run repeatedly.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")

	db, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := app.Prepare(cmd.Context(), db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("schema ready")
	fmt.Fprintf(cmd.OutOrStdout(), "Schema and chart of accounts ready (%s)\n", cfg.Database.Driver)
	return nil
}
