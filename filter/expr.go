package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/marquee/catalog"
)

// DefaultCacheSize is the number of compiled programs kept by NewExprCompiler
// when no WithCache option is given.
const DefaultCacheSize = 100

// TMDB movie genre ids by lowercase name
var genreIDs = map[string]int{
	"action":          28,
	"adventure":       12,
	"animation":       16,
	"comedy":          35,
	"crime":           80,
	"documentary":     99,
	"drama":           18,
	"family":          10751,
	"fantasy":         14,
	"history":         36,
	"horror":          27,
	"music":           10402,
	"mystery":         9648,
	"romance":         10749,
	"science fiction": 878,
	"sci-fi":          878,
	"tv movie":        10770,
	"thriller":        53,
	"war":             10752,
	"western":         37,
}

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	extra      map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache sets the compiled program cache size. Zero disables caching.
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		c.cacheSize = size
	}
}

// WithCustomFunctions adds helper functions available to every expression
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.customFuncs, funcs)
	}
}

// NewExprCompiler creates an expr based compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		customFuncs: make(map[string]any),
		cacheSize:   DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize > 0 {
		c.cache = newLRUCache[CompiledFilter](c.cacheSize)
	}
	return c
}

type exprCompiler struct {
	customFuncs map[string]any
	cacheSize   int
	cache       *lruCache[CompiledFilter]
}

// Compile type-checks expression against the movie environment. Unknown
// identifiers are compile errors.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	env := movieEnvironment(catalog.Movie{}, c.customFuncs)
	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	f := &exprFilter{
		expression: expression,
		program:    program,
		extra:      c.customFuncs,
	}
	if c.cache != nil {
		c.cache.Put(expression, f)
	}
	return f, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether movie matches. Runtime errors count as no match.
func (f *exprFilter) Evaluate(movie catalog.Movie) bool {
	ok, err := f.Match(movie)
	return err == nil && ok
}

// Match runs the program against movie
func (f *exprFilter) Match(movie catalog.Movie) (bool, error) {
	result, err := expr.Run(f.program, movieEnvironment(movie, f.extra))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			MovieID:    movie.ID,
			MovieTitle: movie.Title,
			Err:        err,
		}
	}
	// AsBool guarantees the result type.
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions adds movie independent helpers to env
func addHelperFunctions(env map[string]any) {
	// Dates
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = parseReleaseDate
	env["now"] = time.Now

	// Strings
	env["hasText"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
}

// movieEnvironment builds the variables and helpers an expression sees for
// one movie. The zero Movie is used at compile time for type checking.
func movieEnvironment(movie catalog.Movie, extra map[string]any) map[string]any {
	env := make(map[string]any, 40)
	addHelperFunctions(env)

	env["Movie"] = movie
	env["ID"] = movie.ID
	env["Title"] = movie.Title
	env["OriginalTitle"] = movie.OriginalTitle
	env["Overview"] = movie.Overview
	env["Language"] = movie.OriginalLanguage
	env["ReleaseDate"] = movie.ReleaseDate
	env["Released"] = parseReleaseDate(movie.ReleaseDate)
	env["Year"] = movie.Year()
	env["Popularity"] = movie.Popularity
	env["Rating"] = movie.VoteAverage
	env["Votes"] = movie.VoteCount
	env["Adult"] = movie.Adult
	env["HasPoster"] = movie.HasPoster()
	env["GenreIDs"] = movie.GenreIDs

	env["hasGenre"] = createHasGenreFunc(movie.GenreIDs)
	env["releasedAfter"] = createReleasedAfterFunc(movie.ReleaseDate)
	env["releasedBefore"] = createReleasedBeforeFunc(movie.ReleaseDate)

	maps.Copy(env, extra)
	return env
}

// createHasGenreFunc matches a genre by name or numeric id
func createHasGenreFunc(ids []int) func(any) bool {
	return func(genre any) bool {
		switch g := genre.(type) {
		case string:
			id, ok := genreIDs[strings.ToLower(strings.TrimSpace(g))]
			return ok && slices.Contains(ids, id)
		case int:
			return slices.Contains(ids, g)
		case float64:
			return slices.Contains(ids, int(g))
		default:
			return false
		}
	}
}

func createReleasedAfterFunc(date string) func(string) bool {
	released := parseReleaseDate(date)
	return func(other string) bool {
		return !released.IsZero() && released.After(parseReleaseDate(other))
	}
}

func createReleasedBeforeFunc(date string) func(string) bool {
	released := parseReleaseDate(date)
	return func(other string) bool {
		return !released.IsZero() && released.Before(parseReleaseDate(other))
	}
}

// parseReleaseDate parses a TMDB yyyy-mm-dd date, returning the zero time
// when it is empty or malformed.
func parseReleaseDate(date string) time.Time {
	t, _ := time.Parse(time.DateOnly, date)
	return t
}
