package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/s0up4200/marquee/catalog"
	"github.com/s0up4200/marquee/telemetry"
)

const rule = 80

func printMovies(w io.Writer, movies []catalog.Movie, imageBase string) {
	if len(movies) == 0 {
		fmt.Fprintln(w, "No movies found.")
		return
	}

	fmt.Fprintf(w, "\nFound %d movies:\n", len(movies))
	fmt.Fprintln(w, strings.Repeat("-", rule))

	for _, movie := range movies {
		fmt.Fprintf(w, "• %s", movie.Title)
		if year := movie.Year(); year > 0 {
			fmt.Fprintf(w, " (%d)", year)
		}
		fmt.Fprintf(w, "  ★ %.1f  [id %d]\n", movie.VoteAverage, movie.ID)
		if poster := catalog.PosterURL(imageBase, movie.PosterPath); poster != "" {
			fmt.Fprintf(w, "  Poster: %s\n", poster)
		}
	}
}

func printPresetResults(w io.Writer, names []string, grouped map[string][]catalog.Movie, imageBase string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No filter presets configured.")
		return
	}

	for _, name := range names {
		fmt.Fprintf(w, "\n[%s]", name)
		printMovies(w, grouped[name], imageBase)
	}
}

func printPresets(w io.Writer, names []string, expressions map[string]string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No filter presets configured.")
		return
	}

	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	fmt.Fprintln(w, "Filter presets:")
	fmt.Fprintln(w, strings.Repeat("-", rule))
	for _, name := range names {
		fmt.Fprintf(w, "%-*s  %s\n", width, name, expressions[name])
	}
}

func printTrending(w io.Writer, entries []telemetry.TrendingEntry, ok bool) {
	if !ok || len(entries) == 0 {
		fmt.Fprintln(w, "No trending data available.")
		return
	}

	fmt.Fprintln(w, "\nTrending searches:")
	fmt.Fprintln(w, strings.Repeat("-", rule))

	for i, e := range entries {
		fmt.Fprintf(w, "%2d. %s (%s, %d searches)\n", i+1, e.SearchTerm, e.Title, e.Count)
	}
}

func printDetails(w io.Writer, d *catalog.MovieDetails, imageBase string) {
	fmt.Fprintf(w, "%s", d.Title)
	if year := d.Year(); year > 0 {
		fmt.Fprintf(w, " (%d)", year)
	}
	fmt.Fprintln(w)
	if d.Tagline != "" {
		fmt.Fprintf(w, "  %q\n", d.Tagline)
	}
	fmt.Fprintln(w, strings.Repeat("-", rule))

	if genres := d.GenreNames(); len(genres) > 0 {
		fmt.Fprintf(w, "Genres:   %s\n", strings.Join(genres, ", "))
	}
	if d.Runtime > 0 {
		fmt.Fprintf(w, "Runtime:  %dh %02dm\n", d.Runtime/60, d.Runtime%60)
	}
	if d.Status != "" {
		fmt.Fprintf(w, "Status:   %s\n", d.Status)
	}
	fmt.Fprintf(w, "Rating:   %.1f (%d votes)\n", d.VoteAverage, d.VoteCount)
	if d.IMDbID != "" {
		fmt.Fprintf(w, "IMDb:     https://www.imdb.com/title/%s\n", d.IMDbID)
	}
	if poster := catalog.PosterURL(imageBase, d.PosterPath); poster != "" {
		fmt.Fprintf(w, "Poster:   %s\n", poster)
	}
	if d.Overview != "" {
		fmt.Fprintf(w, "\n%s\n", d.Overview)
	}
}
