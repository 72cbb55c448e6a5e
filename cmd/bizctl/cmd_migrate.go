package main

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/app"
	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			m, err := app.NewMigrator(a.Pool, logger)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Run(ctx); err != nil {
				return err
			}
			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			m, err := app.NewMigrator(a.Pool, logger)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Status(ctx)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
