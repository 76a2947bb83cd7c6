package telemetry

import (
	"cmp"
	"context"
	"slices"

	"github.com/rs/zerolog"
)

// DefaultTrendingLimit is the leaderboard size used when none is given
const DefaultTrendingLimit = 5

// Trending reads the most searched terms from a Store
type Trending struct {
	store  Store
	logger zerolog.Logger
}

// NewTrending creates a trending aggregator on top of store
func NewTrending(store Store, logger zerolog.Logger) *Trending {
	return &Trending{
		store:  store,
		logger: logger,
	}
}

// Top returns at most limit entries ordered by count, highest first. The
// boolean is false when the store could not be read; callers should treat
// that as "no trending data" rather than an empty leaderboard. A limit of
// zero or less uses DefaultTrendingLimit.
func (t *Trending) Top(ctx context.Context, limit int) ([]TrendingEntry, bool) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	docs, err := t.store.ListDocuments(ctx, Query{
		OrderDesc: FieldCount,
		Limit:     limit,
	})
	if err != nil {
		t.logger.Error().Err(err).Int("limit", limit).Msg("Failed to fetch trending searches")
		return nil, false
	}

	entries := make([]TrendingEntry, 0, len(docs))
	for _, doc := range docs {
		record, err := DecodeRecord(doc)
		if err != nil {
			t.logger.Error().Err(err).Msg("Failed to decode trending search")
			return nil, false
		}
		entries = append(entries, record.Entry())
	}

	// Stores are asked to sort; keep the contract even if one does not.
	slices.SortStableFunc(entries, func(a, b TrendingEntry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	t.logger.Debug().Int("count", len(entries)).Msg("Retrieved trending searches")
	return entries, true
}
