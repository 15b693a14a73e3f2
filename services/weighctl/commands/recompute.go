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
	"github.com/tbs-timbangan/weighbridge/services/api/settlement"
	"github.com/tbs-timbangan/weighbridge/services/api/weighing"
)

var (
	// Recompute flags
	recomputeStation string
	recomputeStart   string
	recomputeEnd     string
	recomputeFix     bool
)

// recomputeCmd checks stored settlement figures
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Check stored settlement figures against the calculator",
	Long: `Recalculate net weight, discounted net weight and total amount of every
record in the period and report the ones whose stored figures differ.

Examples:
  weighctl recompute --station Tandun --start 2024-03-01 --end 2024-03-31
  weighctl recompute --start 2024-03-01 --fix    # rewrite mismatching records`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := recordQuery(recomputeStation, recomputeStart, recomputeEnd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		mismatches, err := recompute(ctx, store, q, recomputeFix)
		if err != nil {
			return err
		}
		return printMismatches(cmd.OutOrStdout(), mismatches, recomputeFix)
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeStation, "station", "", "Only check this station")
	recomputeCmd.Flags().StringVar(&recomputeStart, "start", "", "Start date (inclusive)")
	recomputeCmd.Flags().StringVar(&recomputeEnd, "end", "", "End date (inclusive)")
	recomputeCmd.Flags().BoolVar(&recomputeFix, "fix", false, "Rewrite records whose figures differ")
	rootCmd.AddCommand(recomputeCmd)
}

type recordStore interface {
	ListRecords(ctx context.Context, q models.RecordQuery) ([]models.Record, error)
	UpdateRecord(ctx context.Context, rec *models.Record) error
}

// mismatch is a record whose stored figures disagree with the calculator.
type mismatch struct {
	ID       int64             `json:"id"`
	Plate    string            `json:"plate_number"`
	Station  string            `json:"station_id"`
	Stored   settlement.Result `json:"stored"`
	Expected settlement.Result `json:"expected"`
	Fixed    bool              `json:"fixed"`
}

func recordQuery(station, start, end string) (models.RecordQuery, error) {
	q := models.RecordQuery{StationID: station}
	if start != "" {
		t, err := parseDate(start, false)
		if err != nil {
			return q, err
		}
		q.Since = &t
	}
	if end != "" {
		t, err := parseDate(end, true)
		if err != nil {
			return q, err
		}
		q.Until = &t
	}
	return q, nil
}

func recompute(ctx context.Context, store recordStore, q models.RecordQuery, fix bool) ([]mismatch, error) {
	records, err := store.ListRecords(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var out []mismatch
	for i := range records {
		rec := records[i]
		expected, ok := settlement.Verify(weighing.SettlementInput(rec), weighing.StoredResult(rec))
		if ok && rec.Status == rec.CurrentStatus() {
			continue
		}
		m := mismatch{
			ID:       rec.ID,
			Plate:    rec.PlateNumber,
			Station:  rec.StationID,
			Stored:   weighing.StoredResult(rec),
			Expected: expected,
		}
		if fix {
			weighing.Recompute(&rec)
			if err := store.UpdateRecord(ctx, &rec); err != nil {
				return out, fmt.Errorf("update record %d: %w", rec.ID, err)
			}
			m.Fixed = true
		}
		out = append(out, m)
	}
	return out, nil
}

func printMismatches(w io.Writer, mismatches []mismatch, fix bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(mismatches)
	}
	if len(mismatches) == 0 {
		fmt.Fprintln(w, "all stored figures match")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLATE\tSTATION\tSTORED TOTAL\tEXPECTED TOTAL\tFIXED")
	for _, m := range mismatches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n",
			m.ID, m.Plate, m.Station, m.Stored.TotalAmount, m.Expected.TotalAmount, m.Fixed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !fix {
		fmt.Fprintf(w, "\n%d record(s) differ; rerun with --fix to rewrite them\n", len(mismatches))
	}
	return nil
}
