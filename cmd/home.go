package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/marquee/catalog"
	"github.com/s0up4200/marquee/fetch"
)

// homeCmd represents the home command
var homeCmd = &cobra.Command{
	Use:   "home [query]",
	Short: "Show trending searches together with search or popular results",
	RunE:  runHome,
}

func init() {
	homeCmd.Flags().IntVarP(&trendingLimit, "limit", "n", 0, "number of trending entries (default from config)")
}

func runHome(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")
	opts := []fetch.Option{fetch.WithAutoStart(false), fetch.WithLogger(logger)}

	movies := fetch.New(func(ctx context.Context) ([]catalog.Movie, error) {
		return catalogClient.FetchMovies(ctx, query)
	}, opts...)
	board := newTrendingController(effectiveTrendingLimit(), opts...)

	// Each section keeps its own error so one failing does not hide the other.
	var g errgroup.Group
	g.Go(func() error {
		_, err := board.Execute(ctx)
		return err
	})
	g.Go(func() error {
		_, err := movies.Execute(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Debug().Err(err).Msg("Home section failed")
	}

	out := cmd.OutOrStdout()
	if state := board.State(); state.HasData {
		printTrending(out, state.Data.Entries, state.Data.Available)
	} else {
		printTrending(out, nil, false)
	}

	state := movies.State()
	if state.Err != nil {
		fmt.Fprintf(out, "\nError: %v\n", state.Err)
		return fmt.Errorf("failed to fetch movies: %w", state.Err)
	}
	printMovies(out, state.Data, catalogClient.ImageBaseURL())
	return nil
}
