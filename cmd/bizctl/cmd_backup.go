package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Freeeeeet/bizsuite/internal/app"
	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	backupReason string
	pruneKeep    int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, restore and move finance backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a backup of the finance data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, err := parseReason(backupReason)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			b, err := a.Backups.Create(ctx, reason)
			if err != nil {
				return err
			}
			printBackup(cmd.OutOrStdout(), b)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups from both stores, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			list, err := a.Backups.List(ctx)
			if err != nil {
				return err
			}
			writeBackupTable(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace the finance data with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid backup id %q: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			res, err := a.Backups.Restore(ctx, id)
			if err != nil {
				return err
			}
			printRestore(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

var backupRestoreLatestCmd = &cobra.Command{
	Use:   "restore-latest",
	Short: "Restore the newest backup that passes verification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			res, err := a.Backups.RestoreLatest(ctx)
			if err != nil {
				return err
			}
			printRestore(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write a backup to an export file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid backup id %q: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := a.Backups.Export(ctx, id, f); err != nil {
				f.Close()
				os.Remove(args[1])
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", id, args[1])
			return nil
		})
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store an export file as a new backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export file: %w", err)
			}
			defer f.Close()

			b, err := a.Backups.Import(ctx, f)
			if err != nil {
				return err
			}
			printBackup(cmd.OutOrStdout(), b)
			return nil
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the newest backups in each store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			keep := pruneKeep
			if !cmd.Flags().Changed("keep") {
				keep = cfg.BackupRetention
			}
			res, err := a.Backups.Prune(ctx, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d, removed %d remote and %d local\n", keep, res.Remote, res.Local)
			return nil
		})
	},
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupReason, "reason", string(model.BackupReasonManual), "Backup reason (manual or auto)")
	backupPruneCmd.Flags().IntVar(&pruneKeep, "keep", 30, "Number of backups to keep (defaults to BACKUP_RETENTION)")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupRestoreLatestCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	backupCmd.AddCommand(backupPruneCmd)
}

// parseReason accepts only the reasons an operator may pick by hand
func parseReason(s string) (model.BackupReason, error) {
	switch r := model.BackupReason(strings.ToLower(strings.TrimSpace(s))); r {
	case model.BackupReasonManual, model.BackupReasonAuto:
		return r, nil
	default:
		return "", fmt.Errorf("invalid reason %q: use manual or auto", s)
	}
}

func printBackup(w io.Writer, b *model.Backup) {
	fmt.Fprintf(w, "backup %s (%s) at %s\n", b.ID, b.Reason, b.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  checksum %s, %d bytes\n", b.Checksum, b.Size)
	fmt.Fprintf(w, "  %d categories, %d transactions, %d payments, %d installments\n",
		b.Counts.Categories, b.Counts.Transactions, b.Counts.Payments, b.Counts.Installments)
	if len(b.Locations) > 0 {
		fmt.Fprintf(w, "  stored in %s\n", strings.Join(b.Locations, ", "))
	}
}

func printRestore(w io.Writer, res *service.RestoreResult) {
	fmt.Fprintf(w, "restored %s from %s\n", res.Restored.ID, res.Location)
	if res.PreRestore != nil {
		fmt.Fprintf(w, "previous data saved as %s\n", res.PreRestore.ID)
	}
	fmt.Fprintf(w, "%d transactions, %d payments, %d installments\n",
		res.Counts.Transactions, res.Counts.Payments, res.Counts.Installments)
}

func writeBackupTable(w io.Writer, list []*model.Backup) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no backups")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tREASON\tSIZE\tLOCATIONS")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Reason, b.Size, strings.Join(b.Locations, ","))
	}
	tw.Flush()
}
