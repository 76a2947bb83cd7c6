package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/telemetry"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connections to the catalog and the telemetry store",
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	failed := false

	fmt.Fprintf(out, "Testing connection to catalog at %s...\n", cfg.Catalog.URL)
	movies, err := catalogClient.FetchMovies(ctx, "")
	if err != nil {
		failed = true
		fmt.Fprintf(out, "✗ Catalog: %v\n", err)
	} else {
		fmt.Fprintf(out, "✓ Catalog connection successful (%d popular movies)\n", len(movies))
	}

	fmt.Fprintf(out, "\nTesting telemetry store (%s)...\n", cfg.Telemetry.Driver)
	if pinger, ok := store.(telemetry.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			failed = true
			fmt.Fprintf(out, "✗ Telemetry: %v\n", err)
		} else {
			fmt.Fprintln(out, "✓ Telemetry store reachable")
		}
	} else {
		fmt.Fprintln(out, "- Telemetry store does not support health checks")
	}

	if entries, ok := trending.Top(ctx, cfg.Trending.Limit); ok {
		fmt.Fprintf(out, "- Trending entries: %d\n", len(entries))
	}

	if failed {
		return fmt.Errorf("connection test failed")
	}
	return nil
}
