package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/catalog"
)

// detailsCmd represents the details command
var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show full details for a movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

func runDetails(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid movie id %q", args[0])
	}

	details, err := catalogClient.MovieDetails(cmd.Context(), id)
	if err != nil {
		var reqErr *catalog.RequestError
		if errors.As(err, &reqErr) && reqErr.IsNotFound() {
			return fmt.Errorf("movie %d not found", id)
		}
		return fmt.Errorf("failed to fetch movie details: %w", err)
	}

	printDetails(cmd.OutOrStdout(), details, catalogClient.ImageBaseURL())
	return nil
}
