package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/app"
	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/report"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	reportType string
	reportDate string
	chartFrom  string
	chartTo    string
	chartOut   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute, store and chart finance reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Compute a report without storing it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := parsePeriod(reportType)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			at, err := parseDate(reportDate, cfg.Location, time.Now())
			if err != nil {
				return err
			}
			r, err := a.Reports.Compute(ctx, pt, at)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), r)
			return nil
		})
	},
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compute a report and store it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := parsePeriod(reportType)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			at, err := parseDate(reportDate, cfg.Location, time.Now())
			if err != nil {
				return err
			}
			r, err := a.Reports.Generate(ctx, pt, at)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), r)
			return nil
		})
	},
}

var reportChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render income and expense bars to a PNG file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := parsePeriod(reportType)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			to, err := parseDate(chartTo, cfg.Location, time.Now())
			if err != nil {
				return err
			}
			from, err := parseDate(chartFrom, cfg.Location, to.AddDate(0, -5, 0))
			if err != nil {
				return err
			}
			png, err := a.Reports.Chart(ctx, pt, from, to)
			if err != nil {
				return err
			}
			if err := os.WriteFile(chartOut, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s (%d bytes)\n", chartOut, len(png))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{reportShowCmd, reportGenerateCmd, reportChartCmd} {
		c.Flags().StringVar(&reportType, "type", string(model.PeriodMonthly), "Period type (weekly or monthly)")
	}
	reportShowCmd.Flags().StringVar(&reportDate, "date", "", "Any day inside the period, YYYY-MM-DD (default today)")
	reportGenerateCmd.Flags().StringVar(&reportDate, "date", "", "Any day inside the period, YYYY-MM-DD (default today)")
	reportChartCmd.Flags().StringVar(&chartFrom, "from", "", "First day, YYYY-MM-DD (default five months before --to)")
	reportChartCmd.Flags().StringVar(&chartTo, "to", "", "Last day, YYYY-MM-DD (default today)")
	reportChartCmd.Flags().StringVar(&chartOut, "out", "report.png", "Output PNG file")

	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportChartCmd)
}

func parsePeriod(s string) (model.PeriodType, error) {
	pt := model.PeriodType(s)
	if !pt.Valid() {
		return "", fmt.Errorf("invalid period type %q: use weekly or monthly", s)
	}
	return pt, nil
}

// parseDate reads a YYYY-MM-DD day in loc; an empty value yields def
func parseDate(s string, loc *time.Location, def time.Time) (time.Time, error) {
	if s == "" {
		return def.In(loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

func printReport(w io.Writer, r *model.Report) {
	fmt.Fprintf(w, "%s report %s (%s to %s)\n", r.PeriodType, report.Label(r.PeriodType, r.PeriodStart),
		r.PeriodStart.Format(dateLayout), r.PeriodEnd.Format(dateLayout))
	fmt.Fprintf(w, "  income   %s\n", money.Format(r.Income))
	fmt.Fprintf(w, "  expense  %s\n", money.Format(r.Expense))
	fmt.Fprintf(w, "  balance  %s\n", money.Format(r.Balance))
	fmt.Fprintf(w, "  pending  %s\n", money.Format(r.Pending))
	for _, c := range r.ByCategory {
		name := c.Name
		if c.CategoryID == 0 {
			name = "(uncategorized)"
		}
		fmt.Fprintf(w, "    %-24s %-8s %s\n", name, c.Kind, money.Format(c.Amount))
	}
	fmt.Fprintf(w, "  %d transactions, %d payments paid, %d installment items paid, %d pending\n",
		r.Counts.Transactions, r.Counts.PaymentsPaid, r.Counts.InstallmentItemsPaid, r.Counts.PendingItems)
	fmt.Fprintf(w, "  source %s\n", r.Source)
}
