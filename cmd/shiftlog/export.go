package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
	"github.com/pinetree-ops/shiftlog/internal/data"
	"github.com/pinetree-ops/shiftlog/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFrom   string
	exportTo     string
	exportDate   string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events for a date range",
	Long: `Export attendance events straight from the database.

Formats: csv (one row per event), summary-csv (one row per user and day)
and xlsx (both, as two sheets). Dates are local to TIMEZONE.

Examples:
  shiftlog export --date 2026-03-02
  shiftlog export --from 2026-03-01 --to 2026-03-31 --format xlsx --out march.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		write, err := exportWriter(exportFormat)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		} else if exportFormat == "xlsx" && isatty.IsTerminal(os.Stdout.Fd()) {
			return fmt.Errorf("refusing to write xlsx to a terminal, use --out or redirect stdout")
		}

		report, err := loadReport(cmd.Context(), exportDate, exportFrom, exportTo)
		if err != nil {
			return err
		}
		if err := write(out, report); err != nil {
			return fmt.Errorf("write %s: %w", exportFormat, err)
		}

		if exportOut != "" && exportOut != "-" {
			slog.Info("export written", "file", exportOut, "events", len(report.Events), "rows", len(report.Summary))
		}
		return nil
	},
}

func exportWriter(format string) (func(io.Writer, *usecase.Report) error, error) {
	switch format {
	case "csv":
		return func(w io.Writer, r *usecase.Report) error {
			return export.WriteEventsCSV(w, r.Events, r.Location)
		}, nil
	case "summary-csv":
		return func(w io.Writer, r *usecase.Report) error {
			return export.WriteSummaryCSV(w, r.Summary)
		}, nil
	case "xlsx":
		return func(w io.Writer, r *usecase.Report) error {
			return export.WriteXLSX(w, r.Events, r.Summary, r.Location)
		}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// loadReport opens the database read path and builds a report for the range
func loadReport(ctx context.Context, date, from, to string) (*usecase.Report, error) {
	from, to, err := usecase.ResolveRange(date, from, to)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	eventRepo, err := data.NewEventRepo(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer eventRepo.Close()

	return usecase.NewExportUsecase(eventRepo, loc).BuildReport(ctx, from, to)
}

func addRangeFlags(cmd *cobra.Command, date, from, to *string) {
	cmd.Flags().StringVar(date, "date", "", "Single local date (YYYY-MM-DD)")
	cmd.Flags().StringVar(from, "from", "", "First local date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(to, "to", "", "Last local date of the range (YYYY-MM-DD)")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsOneRequired("date", "from")
}

func init() {
	addRangeFlags(exportCmd, &exportDate, &exportFrom, &exportTo)
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, summary-csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write output to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
