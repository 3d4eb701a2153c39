package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/minijohn/internal/config"
	"github.com/dropDatabas3/minijohn/internal/store/adapters/pg"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema embebido en Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := load()
				if err != nil {
					return err
				}
				dsn = cfg.Storage.Postgres.DSN
			}
			if dsn == "" {
				return errors.New("postgres dsn required (--dsn, storage.postgres.dsn or DATABASE_URL)")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			n, err := pg.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "DSN de Postgres (default: storage.postgres.dsn)")
	return cmd
}
