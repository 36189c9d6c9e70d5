// Package engine adapts a kwsearch.Searcher into the per-keyword call the
// batch worker makes: it trims and validates the query, guards the backend
// with a circuit breaker, filters and de-duplicates the records and keeps
// search statistics.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/internal/metrics"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBreakerThreshold is the number of consecutive backend failures
	// that opens the breaker.
	DefaultBreakerThreshold = 3
	// DefaultBreakerCooldown is how long the breaker stays open.
	DefaultBreakerCooldown = 60 * time.Second
)

// Engine runs single keyword searches against a backend.
type Engine struct {
	searcher kwsearch.Searcher
	breaker  *gobreaker.CircuitBreaker
	recorder *metrics.Recorder
	logger   *slog.Logger

	filters          []kwsearch.Expression
	breakerThreshold uint32
	breakerCooldown  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFilters replaces the default record filter. Passing no expressions
// keeps every valid record.
func WithFilters(exprs ...kwsearch.Expression) Option {
	return func(e *Engine) {
		e.filters = exprs
	}
}

// WithBreaker tunes the circuit breaker.
func WithBreaker(threshold uint32, cooldown time.Duration) Option {
	return func(e *Engine) {
		e.breakerThreshold = threshold
		e.breakerCooldown = cooldown
	}
}

// WithRecorder shares a metrics recorder, e.g. to push it after a batch.
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New wraps searcher.
func New(searcher kwsearch.Searcher, opts ...Option) *Engine {
	e := &Engine{
		searcher:         searcher,
		logger:           slog.Default(),
		filters:          []kwsearch.Expression{kwsearch.DefaultFilter()},
		breakerThreshold: DefaultBreakerThreshold,
		breakerCooldown:  DefaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = metrics.New()
	}
	if e.breakerThreshold == 0 {
		e.breakerThreshold = DefaultBreakerThreshold
	}

	threshold := e.breakerThreshold
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "search-backend",
		Timeout: e.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
			e.recorder.SetBreakerOpen(to == gobreaker.StateOpen)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
	})
	return e
}

// tripsBreaker reports whether err says the backend itself is unusable, as
// opposed to a problem with this one request.
func tripsBreaker(err error) bool {
	return errors.IsAny(err,
		kwsearch.ErrBackendUnavailable, kwsearch.ErrQuotaExceeded,
		kwsearch.ErrRateLimited, kwsearch.ErrTimeout,
	)
}

// SearchKeyword searches one keyword and returns at most Num records ordered
// by rank. Options, including the count, reach the backend unchanged.
func (e *Engine) SearchKeyword(ctx context.Context, query string, opts ...kwsearch.SearchOption) ([]kwsearch.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, kwsearch.ErrEmptyQuery
	}

	cfg := kwsearch.NewSearchConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.searcher.Search(ctx, query, opts...)
	})
	took := time.Since(started)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = errors.WithSecondaryError(kwsearch.ErrBackendUnavailable, err)
		}
		e.recorder.ObserveSearch(false, 0, took)
		e.logger.ErrorContext(ctx, "search failed", "query", query, "num", cfg.Num, "error", err)
		return nil, err
	}

	var items []kwsearch.Result
	if res, ok := out.(*kwsearch.Results); ok && res != nil {
		items = res.Items
	}
	records := e.refine(query, cfg, items)

	e.recorder.ObserveSearch(true, len(records), took)
	e.logger.InfoContext(ctx, "search completed",
		"query", query, "num", cfg.Num, "returned", len(items), "kept", len(records), "took", took)
	return records, nil
}

func (e *Engine) refine(query string, cfg *kwsearch.SearchConfig, items []kwsearch.Result) []kwsearch.Result {
	filters := make([]kwsearch.Expression, 0, len(e.filters)+len(cfg.Filters))
	filters = append(filters, e.filters...)
	filters = append(filters, cfg.Filters...)

	records := make([]kwsearch.Result, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if len(records) == cfg.Num {
			break
		}
		if item.Query == "" {
			item.Query = query
		}
		if !item.Valid() {
			e.logger.Debug("dropping invalid record", "query", query, "rank", item.Rank, "url", item.URL)
			continue
		}
		if !kwsearch.MatchesAll(item, filters) {
			e.logger.Debug("record filtered out", "query", query, "url", item.URL)
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(item.URL, "/"))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, item)
	}
	return records
}

// Stats returns the statistics collected since creation or the last reset.
func (e *Engine) Stats() (metrics.Snapshot, error) {
	return e.recorder.Snapshot()
}

// ResetStats clears the statistics.
func (e *Engine) ResetStats() {
	e.recorder.Reset()
}

// Recorder exposes the metrics recorder.
func (e *Engine) Recorder() *metrics.Recorder {
	return e.recorder
}

// BreakerState returns the breaker state name: closed, half-open or open.
func (e *Engine) BreakerState() string {
	return e.breaker.State().String()
}

// Ping checks the backend when it supports it.
func (e *Engine) Ping(ctx context.Context) error {
	p, ok := e.searcher.(kwsearch.Pinger)
	if !ok {
		return errors.WithSecondaryError(kwsearch.ErrNotImplemented,
			errors.New("backend does not support connection tests"))
	}
	return p.Ping(ctx)
}
