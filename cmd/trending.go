package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/fetch"
	"github.com/s0up4200/marquee/telemetry"
)

var trendingLimit int

// trendingCmd represents the trending command
var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the most searched terms",
	RunE:  runTrending,
}

func init() {
	trendingCmd.Flags().IntVarP(&trendingLimit, "limit", "n", 0, "number of entries (default from config)")
}

// leaderboard is the value tracked by the trending controller. Available is
// false when the store could not be read.
type leaderboard struct {
	Entries   []telemetry.TrendingEntry
	Available bool
}

func newTrendingController(limit int, opts ...fetch.Option) *fetch.Controller[leaderboard] {
	return fetch.New(func(ctx context.Context) (leaderboard, error) {
		entries, ok := trending.Top(ctx, limit)
		return leaderboard{Entries: entries, Available: ok}, nil
	}, opts...)
}

func effectiveTrendingLimit() int {
	if trendingLimit > 0 {
		return trendingLimit
	}
	return cfg.Trending.Limit
}

func runTrending(cmd *cobra.Command, args []string) error {
	board := newTrendingController(effectiveTrendingLimit(), fetch.WithAutoStart(false), fetch.WithLogger(logger))

	result, err := board.Execute(cmd.Context())
	if err != nil {
		return err
	}

	printTrending(cmd.OutOrStdout(), result.Entries, result.Available)
	return nil
}
