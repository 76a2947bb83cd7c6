package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store. It keeps insertion order so that
// documents with equal sort keys come back in a stable order.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string]map[string]any
	order      []string
	uniqueKeys []string
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithUniqueKeys rejects creates that would duplicate a value of any of keys
func WithUniqueKeys(keys ...string) MemoryOption {
	return func(s *MemoryStore) {
		s.uniqueKeys = append(s.uniqueKeys, keys...)
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDocuments returns documents matching q
func (s *MemoryStore) ListDocuments(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Document, 0)
	for _, id := range s.order {
		fields := s.docs[id]
		if !matchesEqual(fields, q.Equal) {
			continue
		}
		results = append(results, Document{ID: id, Fields: maps.Clone(fields)})
	}

	if q.OrderDesc != "" {
		slices.SortStableFunc(results, func(a, b Document) int {
			av, _ := toFloat(a.Fields[q.OrderDesc])
			bv, _ := toFloat(b.Fields[q.OrderDesc])
			return cmp.Compare(bv, av)
		})
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return results, nil
}

// CreateDocument stores a new document under id
func (s *MemoryStore) CreateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if id == "" {
		return Document{}, fmt.Errorf("document id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; exists {
		return Document{}, fmt.Errorf("%w: id %s", ErrConflict, id)
	}
	for _, key := range s.uniqueKeys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		for _, existing := range s.docs {
			if valuesEqual(existing[key], value) {
				return Document{}, fmt.Errorf("%w: %s=%v", ErrConflict, key, value)
			}
		}
	}

	stored := maps.Clone(fields)
	if stored == nil {
		stored = make(map[string]any)
	}
	s.docs[id] = stored
	s.order = append(s.order, id)

	return Document{ID: id, Fields: maps.Clone(stored)}, nil
}

// UpdateDocument merges fields into the document identified by id
func (s *MemoryStore) UpdateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.docs[id]
	if !exists {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	maps.Copy(stored, fields)

	return Document{ID: id, Fields: maps.Clone(stored)}, nil
}

// IncrementDocument adds delta to field under the store lock
func (s *MemoryStore) IncrementDocument(ctx context.Context, id, field string, delta int) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.docs[id]
	if !exists {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	current := 0
	if raw, ok := stored[field]; ok && raw != nil {
		f, ok := toFloat(raw)
		if !ok {
			return Document{}, fmt.Errorf("field %s is not numeric: %T", field, raw)
		}
		current = int(f)
	}
	stored[field] = current + delta

	return Document{ID: id, Fields: maps.Clone(stored)}, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored documents
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func matchesEqual(fields, equal map[string]any) bool {
	for key, want := range equal {
		got, ok := fields[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares numbers by value regardless of their Go type
func valuesEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
