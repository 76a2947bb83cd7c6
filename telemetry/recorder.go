package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/s0up4200/marquee/catalog"
)

// Recorder keeps one SearchRecord per distinct search term
type Recorder struct {
	store        Store
	imageBaseURL string
	newID        func() string
	logger       zerolog.Logger
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithImageBaseURL sets the prefix joined with poster paths on new records
func WithImageBaseURL(base string) RecorderOption {
	return func(r *Recorder) {
		r.imageBaseURL = base
	}
}

// WithIDGenerator replaces the document id generator
func WithIDGenerator(gen func() string) RecorderOption {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRecorder creates a recorder on top of store
func NewRecorder(store Store, logger zerolog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:        store,
		imageBaseURL: catalog.DefaultImageBaseURL,
		newID:        newDocumentID,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordSearch counts one search of term that led to movie. It is best
// effort: failures are logged and never reach the caller. Empty terms are
// ignored.
func (r *Recorder) RecordSearch(ctx context.Context, term string, movie catalog.Movie) {
	if term == "" {
		r.logger.Debug().Msg("Skipping empty search term")
		return
	}

	if err := r.recordSearch(ctx, term, movie); err != nil {
		r.logger.Error().
			Err(err).
			Str("term", term).
			Int("movie_id", movie.ID).
			Msg("Failed to record search")
	}
}

func (r *Recorder) recordSearch(ctx context.Context, term string, movie catalog.Movie) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while recording search: %v", p)
		}
	}()

	existing, found, err := r.find(ctx, term)
	if err != nil {
		return err
	}
	if found {
		return r.increment(ctx, existing)
	}

	id := r.newID()
	_, err = r.store.CreateDocument(ctx, id, newRecordFields(term, movie, r.imageBaseURL))
	if err == nil {
		r.logger.Debug().Str("term", term).Str("id", id).Msg("Created search record")
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return fmt.Errorf("failed to create search record: %w", err)
	}

	// Another writer created the record between our lookup and create.
	existing, found, err = r.find(ctx, term)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("search record for %q conflicted but could not be found", term)
	}
	return r.increment(ctx, existing)
}

func (r *Recorder) find(ctx context.Context, term string) (SearchRecord, bool, error) {
	docs, err := r.store.ListDocuments(ctx, Query{
		Equal: map[string]any{FieldSearchTerm: term},
		Limit: 1,
	})
	if err != nil {
		return SearchRecord{}, false, fmt.Errorf("failed to query search records: %w", err)
	}
	if len(docs) == 0 {
		return SearchRecord{}, false, nil
	}

	record, err := DecodeRecord(docs[0])
	if err != nil {
		return SearchRecord{}, false, err
	}
	return record, true, nil
}

func (r *Recorder) increment(ctx context.Context, record SearchRecord) error {
	if inc, ok := r.store.(Incrementer); ok {
		if _, err := inc.IncrementDocument(ctx, record.ID, FieldCount, 1); err != nil {
			return fmt.Errorf("failed to increment search record: %w", err)
		}
	} else {
		update := map[string]any{FieldCount: record.Count + 1}
		if _, err := r.store.UpdateDocument(ctx, record.ID, update); err != nil {
			return fmt.Errorf("failed to update search record: %w", err)
		}
	}

	r.logger.Debug().
		Str("term", record.SearchTerm).
		Int("previous_count", record.Count).
		Msg("Incremented search record")
	return nil
}

func newDocumentID() string {
	return uuid.Must(uuid.NewV7()).String()
}
