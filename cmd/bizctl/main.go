package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/app"
	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	timeout time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bizctl",
	Short: "bizsuite operations: migrations, backups, reports and CPF tools",
	Long: `bizctl runs maintenance tasks against the bizsuite databases.

Configuration comes from .env and the environment, the same as the server.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cpfCmd)
}

// withApp loads the config, builds the logger and the services and runs fn under the timeout
func withApp(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err = newLogger(cfg, verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, cfg, a)
}

// newLogger builds the same logger as the server; --verbose forces debug
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	l, err := app.NewLogger(cfg.Environment, level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
