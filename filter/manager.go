package filter

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/marquee/catalog"
)

// Manager holds named filter presets and applies them to catalog results
type Manager struct {
	compiler Compiler
	filters  map[string]CompiledFilter
	limit    int
	mu       sync.RWMutex
}

// NewManager creates a manager with a caching expr compiler. EvaluateAll
// runs at most GOMAXPROCS presets at once.
func NewManager() *Manager {
	return &Manager{
		compiler: NewExprCompiler(),
		filters:  make(map[string]CompiledFilter),
		limit:    runtime.GOMAXPROCS(0),
	}
}

// Compile compiles an ad-hoc expression with the manager's compiler
func (m *Manager) Compile(expression string) (CompiledFilter, error) {
	return m.compiler.Compile(expression)
}

// RegisterFilters registers all presets or none of them
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))
	for name, expression := range filters {
		f, err := m.compiler.Compile(expression)
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = f
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()
	return nil
}

// GetFilter returns a preset by name
func (m *Manager) GetFilter(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.filters[name]
	return f, ok
}

// ListFilters returns the registered preset names in sorted order
func (m *Manager) ListFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// EvaluateFilter applies the named preset to movies
func (m *Manager) EvaluateFilter(ctx context.Context, name string, movies []catalog.Movie) ([]catalog.Movie, error) {
	f, ok := m.GetFilter(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return Apply(ctx, f, movies)
}

// EvaluateAll applies every preset to movies concurrently and returns the
// matches keyed by preset name.
func (m *Manager) EvaluateAll(ctx context.Context, movies []catalog.Movie) (map[string][]catalog.Movie, error) {
	m.mu.RLock()
	filters := maps.Clone(m.filters)
	m.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string][]catalog.Movie, len(filters))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)
	for name, f := range filters {
		g.Go(func() error {
			matches, err := Apply(ctx, f, movies)
			if err != nil {
				return fmt.Errorf("filter '%s': %w", name, err)
			}
			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
