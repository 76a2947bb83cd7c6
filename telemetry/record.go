package telemetry

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/s0up4200/marquee/catalog"
)

// Document field names of a search record
const (
	FieldSearchTerm = "searchTerm"
	FieldMovieID    = "movie_id"
	FieldTitle      = "title"
	FieldCount      = "count"
	FieldPosterURL  = "poster_url"
)

// SearchRecord is the stored aggregate for one distinct search term
type SearchRecord struct {
	ID         string
	SearchTerm string
	MovieID    int
	Title      string
	Count      int
	PosterURL  string
}

// HasPoster reports whether the record carries a poster URL
func (r *SearchRecord) HasPoster() bool {
	return r.PosterURL != ""
}

// TrendingEntry is a leaderboard row derived from a SearchRecord
type TrendingEntry struct {
	SearchTerm string
	MovieID    int
	Title      string
	Count      int
	PosterURL  string
}

// Entry projects the record onto a leaderboard row
func (r *SearchRecord) Entry() TrendingEntry {
	return TrendingEntry{
		SearchTerm: r.SearchTerm,
		MovieID:    r.MovieID,
		Title:      r.Title,
		Count:      r.Count,
		PosterURL:  r.PosterURL,
	}
}

// DecodeError is returned when a stored document does not match the record schema
type DecodeError struct {
	DocumentID string
	Field      string
	Reason     string
	Err        error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("malformed search record %q: %s", e.DocumentID, e.Reason)
	if e.Field != "" {
		msg = fmt.Sprintf("malformed search record %q: field %s: %s", e.DocumentID, e.Field, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// recordFields mirrors the stored shape; pointers distinguish absent from zero
type recordFields struct {
	SearchTerm *string `mapstructure:"searchTerm"`
	MovieID    *int    `mapstructure:"movie_id"`
	Title      *string `mapstructure:"title"`
	Count      *int    `mapstructure:"count"`
	PosterURL  *string `mapstructure:"poster_url"`
}

// DecodeRecord validates a document against the search record schema.
// A missing count decodes as 0.
func DecodeRecord(doc Document) (SearchRecord, error) {
	if doc.ID == "" {
		return SearchRecord{}, &DecodeError{Reason: "missing document id"}
	}

	var raw recordFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: integralFloatHook,
		Result:     &raw,
	})
	if err != nil {
		return SearchRecord{}, &DecodeError{DocumentID: doc.ID, Reason: "decoder setup failed", Err: err}
	}
	if err := decoder.Decode(doc.Fields); err != nil {
		return SearchRecord{}, &DecodeError{DocumentID: doc.ID, Reason: "type mismatch", Err: err}
	}

	if raw.SearchTerm == nil {
		return SearchRecord{}, &DecodeError{DocumentID: doc.ID, Field: FieldSearchTerm, Reason: "missing"}
	}

	record := SearchRecord{
		ID:         doc.ID,
		SearchTerm: *raw.SearchTerm,
	}
	if raw.MovieID != nil {
		record.MovieID = *raw.MovieID
	}
	if raw.Title != nil {
		record.Title = *raw.Title
	}
	if raw.Count != nil {
		if *raw.Count < 0 {
			return SearchRecord{}, &DecodeError{DocumentID: doc.ID, Field: FieldCount, Reason: fmt.Sprintf("negative value %d", *raw.Count)}
		}
		record.Count = *raw.Count
	}
	if raw.PosterURL != nil {
		record.PosterURL = *raw.PosterURL
	}

	return record, nil
}

// integralFloatHook accepts JSON numbers for int fields only when they are
// whole and fit in an int
func integralFloatHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	}
	return data, nil
}

func floatToInt(v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expected integer, got %v", v)
	}
	// float64(math.MaxInt) rounds up to 2^63, which is itself out of range
	if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return 0, fmt.Errorf("value %v out of range", v)
	}
	return int(v), nil
}

// newRecordFields builds the field map for a first-time search of term
func newRecordFields(term string, movie catalog.Movie, imageBaseURL string) map[string]any {
	var posterURL any
	if movie.HasPoster() {
		posterURL = catalog.PosterURL(imageBaseURL, movie.PosterPath)
	}

	return map[string]any{
		FieldSearchTerm: term,
		FieldMovieID:    movie.ID,
		FieldTitle:      movie.Title,
		FieldCount:      1,
		FieldPosterURL:  posterURL,
	}
}
