package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/MrEthical07/goSession/session/postgres"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres session schema",
		Long:  "Applies the embedded SQL migrations to the database named by --dsn, or by store.dsn in the config.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := initLogger(cfg.Log); err != nil {
					return err
				}
				dsn = cfg.Store.DSN
			}
			if dsn == "" {
				return oops.In("main").Errorf("no database: set --dsn or store.dsn")
			}

			if err := postgres.Migrate(postgres.MigrationDSN(dsn)); err != nil {
				return oops.In("main").Wrapf(err, "Failed to migrate the database")
			}
			slogctx.Info(cmd.Context(), "database schema is up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection URL")

	return cmd
}
