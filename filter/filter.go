// Package filter narrows catalog results with expr-lang expressions such as
//
//	Year >= 2000 and Rating > 7 and hasGenre("science fiction")
//
// Expressions are type-checked at compile time against the movie variables
// (Title, Year, Rating, Votes, Popularity, Language, HasPoster...) and the
// helper functions (hasText, lower, daysSince, hasGenre, releasedAfter...).
// Substring tests can also use the expr operators directly:
//
//	Title contains "dune" or Title startsWith "The"
package filter

import (
	"context"

	"github.com/s0up4200/marquee/catalog"
)

// Apply returns the movies matching f in their original order. A nil filter
// keeps everything.
func Apply(ctx context.Context, f Filter, movies []catalog.Movie) ([]catalog.Movie, error) {
	if f == nil {
		return movies, nil
	}

	matches := make([]catalog.Movie, 0, len(movies))
	for _, movie := range movies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Evaluate(movie) {
			matches = append(matches, movie)
		}
	}
	return matches, nil
}
