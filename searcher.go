// Package kwsearch defines the search abstraction shared by every backend:
// a Searcher, the options that shape one request, the result records and
// the errors a backend may return.
package kwsearch

import "context"

// Searcher defines the core search interface.
type Searcher interface {
	// Search executes a search with the given query and options. Items in the
	// returned Results are ordered by rank and never exceed the requested count.
	Search(ctx context.Context, query string, opts ...SearchOption) (*Results, error)
}

// SearcherFunc is a function type that implements the Searcher interface.
// This allows using a function as a Searcher, similar to http.HandlerFunc.
type SearcherFunc func(context.Context, string, ...SearchOption) (*Results, error)

// Search implements the Searcher interface for SearcherFunc.
func (f SearcherFunc) Search(ctx context.Context, query string, opts ...SearchOption) (*Results, error) {
	return f(ctx, query, opts...)
}

// Pinger is implemented by backends that can verify their credentials and
// connectivity without running a real search batch.
type Pinger interface {
	Ping(ctx context.Context) error
}
