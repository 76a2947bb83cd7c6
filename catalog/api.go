package catalog

import (
	"context"
)

// API defines the catalog operations used by the rest of the application
type API interface {
	// FetchMovies searches the catalog for query, or lists popular movies when query is empty
	FetchMovies(ctx context.Context, query string) ([]Movie, error)

	// MovieDetails retrieves the full record for a single movie
	MovieDetails(ctx context.Context, id int) (*MovieDetails, error)
}
