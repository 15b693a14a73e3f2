package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbs-timbangan/weighbridge/services/api/db"
)

var (
	// Global flags
	dbURL      string
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "weighctl",
	Short: "Maintenance tool for the weighbridge database",
	Long: `weighctl runs maintenance against the weighbridge Postgres database.

Commands:
  migrate    - Create or update the schema
  recompute  - Check stored settlement figures and optionally fix them
  summary    - Print per-station totals for a period`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func databaseURL() (string, error) {
	if dbURL != "" {
		return dbURL, nil
	}
	_ = godotenv.Load() // ignore missing file
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("database URL is required: pass --db or set DATABASE_URL")
}

func openStore(ctx context.Context) (*db.Store, error) {
	url, err := databaseURL()
	if err != nil {
		return nil, err
	}
	return db.New(ctx, url)
}

// parseDate reads YYYY-MM-DD or RFC3339. A plain date used as an end bound
// covers the whole day.
func parseDate(v string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", v)
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
