package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/report"
)

var (
	// Summary flags
	summaryStation string
	summaryStart   string
	summaryEnd     string
)

// summaryCmd prints per-station totals
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-station totals for a period",
	Long: `Sum the stored settlement figures per station.

Examples:
  weighctl summary --start 2024-03-01 --end 2024-03-31
  weighctl summary --station Tandun --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := recordQuery(summaryStation, summaryStart, summaryEnd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.ListRecords(ctx, q)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return printSummary(cmd.OutOrStdout(), report.Summarize(records, filterFor(q)))
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryStation, "station", "", "Only include this station")
	summaryCmd.Flags().StringVar(&summaryStart, "start", "", "Start date (inclusive)")
	summaryCmd.Flags().StringVar(&summaryEnd, "end", "", "End date (inclusive)")
	rootCmd.AddCommand(summaryCmd)
}

func filterFor(q models.RecordQuery) report.Filter {
	f := report.Filter{StationID: q.StationID}
	if q.Since != nil {
		f.Start = *q.Since
	}
	if q.Until != nil {
		f.End = *q.Until
	}
	return f
}

func printSummary(w io.Writer, s report.Summary) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATION\tRECORDS\tSETTLED\tOPEN\tNET (KG)\tNET AFTER DISCOUNT (KG)\tTOTAL")
	row := func(name string, t report.StationTotals) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.0f\t%d\t%s\n",
			name, t.Records, t.Settled, t.Open, t.NetWeight, t.NetWeightAfterDiscount, t.TotalAmount)
	}
	for _, st := range s.Stations {
		row(st.StationID, st)
	}
	row("TOTAL", s.Total)
	return tw.Flush()
}
