package catalog

import (
	"strconv"
	"strings"
)

// DefaultImageBaseURL is the TMDB image prefix for w500 posters
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie represents a single catalog entry as returned by search and discover
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
}

// HasPoster reports whether the movie carries a poster path
func (m *Movie) HasPoster() bool {
	return m.PosterPath != ""
}

// Year returns the release year, or 0 when the release date is unknown
func (m *Movie) Year() int {
	return releaseYear(m.ReleaseDate)
}

// MoviesResponse is the envelope of the search and discover endpoints
type MoviesResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre is a named TMDB genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany is a studio credited on a movie
type ProductionCompany struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// MovieDetails is the full record returned by the movie endpoint
type MovieDetails struct {
	Movie
	IMDbID              string              `json:"imdb_id,omitempty"`
	Tagline             string              `json:"tagline,omitempty"`
	Status              string              `json:"status,omitempty"`
	Runtime             int                 `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Homepage            string              `json:"homepage,omitempty"`
	Genres              []Genre             `json:"genres,omitempty"`
	ProductionCompanies []ProductionCompany `json:"production_companies,omitempty"`
}

// GenreNames returns the genre names in API order
func (d *MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// PosterURL joins an image base URL and a poster path. It returns an empty
// string when the movie has no poster.
func PosterURL(imageBase, posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return strings.TrimRight(imageBase, "/") + "/" + strings.TrimLeft(posterPath, "/")
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
