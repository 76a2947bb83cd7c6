package filter

import (
	"github.com/s0up4200/marquee/catalog"
)

// Filter decides whether a catalog movie should be kept
type Filter interface {
	// Evaluate reports whether movie matches
	Evaluate(movie catalog.Movie) bool
}

// CompiledFilter is a filter expression ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the evaluation error exposed
	Match(movie catalog.Movie) (bool, error)

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler is a Compiler that keeps compiled programs around
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
