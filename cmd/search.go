package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/catalog"
	"github.com/s0up4200/marquee/fetch"
	"github.com/s0up4200/marquee/filter"
)

var (
	noRecord   bool
	allPresets bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search movies, or list popular movies when no query is given",
	Long: `Search the catalog by title. Without a query the most popular movies are
listed instead. The top result of every search is recorded for the trending
leaderboard unless --no-record is set.

--all-presets applies every configured preset to the results and prints the
matches grouped by preset name.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression, e.g. 'Year >= 2000 and Rating > 7'")
	searchCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	searchCmd.Flags().BoolVar(&allPresets, "all-presets", false, "group results under every preset from config")
	searchCmd.Flags().BoolVar(&noRecord, "no-record", false, "do not record this search")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	if allPresets && (filterExpr != "" || preset != "") {
		return errors.New("--all-presets cannot be combined with --filter or --preset")
	}

	f, err := getFilter()
	if err != nil {
		return err
	}
	// --filter takes precedence over --preset
	var presetName string
	if f == nil && preset != "" {
		presetName = strings.ToLower(preset)
		if _, ok := filters.GetFilter(presetName); !ok {
			return fmt.Errorf("%w: '%s' not found in config", filter.ErrUnknownPreset, preset)
		}
	}

	logger.Info().Str("query", query).Msg("Fetching movies")

	movies := fetch.New(func(ctx context.Context) ([]catalog.Movie, error) {
		return catalogClient.FetchMovies(ctx, query)
	}, fetch.WithLogger(logger))
	movies.Start(ctx)
	defer movies.Stop()
	movies.Wait()

	state := movies.State()
	if state.Err != nil {
		return fmt.Errorf("failed to fetch movies: %w", state.Err)
	}

	out := cmd.OutOrStdout()
	switch {
	case allPresets:
		grouped, err := filters.EvaluateAll(ctx, state.Data)
		if err != nil {
			return err
		}
		printPresetResults(out, filters.ListFilters(), grouped, catalogClient.ImageBaseURL())
	case presetName != "":
		matched, err := filters.EvaluateFilter(ctx, presetName, state.Data)
		if err != nil {
			return err
		}
		printMovies(out, matched, catalogClient.ImageBaseURL())
	default:
		matched, err := filter.Apply(ctx, f, state.Data)
		if err != nil {
			return err
		}
		printMovies(out, matched, catalogClient.ImageBaseURL())
	}

	if query != "" && !noRecord && len(state.Data) > 0 {
		recorder.RecordSearch(ctx, query, state.Data[0])
	}
	return nil
}
