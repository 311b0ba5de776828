package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/cleanout-estimator/internal/config"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/repository/postgres"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				dsn = config.Load().PostgresDSN
			}
			db, err := postgres.OpenDB(dsn)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			version, err := postgres.SchemaVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (default: POSTGRES_DSN)")
	return cmd
}
