package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	summaryFrom   string
	summaryTo     string
	summaryDate   string
	summaryFormat string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the daily summary for a date range",
	Long: `Print one row per user and local day: first shift start, last shift end,
break minutes within the shift and worked minutes.

Examples:
  shiftlog summary --date 2026-03-02
  shiftlog summary --from 2026-03-01 --to 2026-03-07 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := loadReport(cmd.Context(), summaryDate, summaryFrom, summaryTo)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch summaryFormat {
		case "table":
			if len(report.Summary) == 0 {
				fmt.Fprintf(out, "No events between %s and %s (%s)\n", report.From, report.To, report.Location)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tUSER\tSTART\tEND\tBREAK (MIN)\tWORKED (MIN)\tINCOMPLETE")
			for _, row := range report.Summary {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					row.Date, row.UserName, dash(row.ShiftStart), dash(row.ShiftEnd),
					row.BreakMinutes, row.WorkedMinutes, strconv.FormatBool(row.Incomplete))
			}
			return tw.Flush()
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report.Summary)
		default:
			return fmt.Errorf("unknown format: %s", summaryFormat)
		}
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	addRangeFlags(summaryCmd, &summaryDate, &summaryFrom, &summaryTo)
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "table", "Output format: table or json")
	rootCmd.AddCommand(summaryCmd)
}
