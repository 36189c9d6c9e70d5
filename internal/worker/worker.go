// Package worker runs a keyword batch: one search per keyword, in order,
// with a pause between keywords, reporting progress to an observer.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/segmentio/ksuid"
)

// ErrNoKeywords is returned when a batch has nothing to search.
var ErrNoKeywords = errors.New("worker: no keywords")

// KeywordSearcher performs the search for one keyword.
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, query string, opts ...kwsearch.SearchOption) ([]kwsearch.Result, error)
}

// Settings are the per-batch search parameters.
type Settings struct {
	// Num is the count parameter sent with every keyword.
	Num int
	// Delay is the pause between two keywords.
	Delay time.Duration
	// Options are forwarded with every keyword.
	Options []kwsearch.SearchOption
}

// SettingsFrom builds Settings from a configuration snapshot.
func SettingsFrom(cfg config.Config) Settings {
	s := cfg.Search
	var opts []kwsearch.SearchOption
	if s.LR != "" {
		opts = append(opts, kwsearch.WithLanguage(s.LR))
	}
	if s.Safe != "" {
		opts = append(opts, kwsearch.WithSafeSearch(s.Safe))
	}
	if s.GL != "" {
		opts = append(opts, kwsearch.WithCountry(s.GL))
	}
	if s.HL != "" {
		opts = append(opts, kwsearch.WithInterfaceLanguage(s.HL))
	}
	if s.DateRestrict != "" {
		opts = append(opts, kwsearch.WithDateRestrict(s.DateRestrict))
	}
	return Settings{
		Num:     s.Num,
		Delay:   time.Duration(s.Delay * float64(time.Second)),
		Options: opts,
	}
}

// Observer receives batch events. Calls are made from the goroutine
// running the batch.
type Observer interface {
	OnProgress(percent int, message string)
	OnResult(keyword string, results []kwsearch.Result)
	OnKeywordError(keyword string, err error)
	OnDone(report *Report)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnProgress(int, string)             {}
func (NopObserver) OnResult(string, []kwsearch.Result) {}
func (NopObserver) OnKeywordError(string, error)       {}
func (NopObserver) OnDone(*Report)                     {}

// KeywordError records a keyword whose search failed.
type KeywordError struct {
	Keyword string
	Err     error
}

// Report summarises a batch.
type Report struct {
	RunID       string
	Keywords    int
	Results     []kwsearch.Result
	Processed   int
	Failed      []KeywordError
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
}

// Succeeded returns the number of keywords searched without error.
func (r *Report) Succeeded() int {
	return r.Processed - len(r.Failed)
}

// SuccessRate returns the share of processed keywords that succeeded, in percent.
func (r *Report) SuccessRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Succeeded()) / float64(r.Processed) * 100
}

// Duration returns the wall time of the batch.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Worker runs batches against a KeywordSearcher.
type Worker struct {
	searcher  KeywordSearcher
	settings  Settings
	observer  Observer
	logger    *slog.Logger
	preflight bool
}

// Option configures a Worker.
type Option func(*Worker)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(w *Worker) {
		w.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithPreflight makes Run test the backend connection before the first
// keyword when the searcher can do so.
func WithPreflight() Option {
	return func(w *Worker) {
		w.preflight = true
	}
}

// New creates a Worker.
func New(searcher KeywordSearcher, settings Settings, opts ...Option) *Worker {
	w := &Worker{
		searcher: searcher,
		settings: settings,
		observer: NopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run searches keywords one after another. A failing keyword is recorded
// and the batch continues. Cancelling ctx stops the batch; the partial
// report is returned with Interrupted set and a nil error.
func (w *Worker) Run(ctx context.Context, keywords []string) (*Report, error) {
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	num := w.settings.Num
	if num == 0 {
		num = kwsearch.DefaultNum
	}
	if num < kwsearch.MinNum || num > kwsearch.MaxNum {
		return nil, errors.WithSecondaryError(kwsearch.ErrInvalidOption,
			errors.Newf("num must be between %d and %d, got %d", kwsearch.MinNum, kwsearch.MaxNum, num))
	}

	if w.preflight {
		if p, ok := w.searcher.(kwsearch.Pinger); ok {
			if err := p.Ping(ctx); err != nil && !errors.Is(err, kwsearch.ErrNotImplemented) {
				return nil, errors.Wrap(err, "connection test failed")
			}
		}
	}

	report := &Report{
		RunID:     ksuid.New().String(),
		Keywords:  len(keywords),
		StartedAt: time.Now(),
	}
	logger := w.logger.With("run_id", report.RunID)
	logger.InfoContext(ctx, "batch started", "keywords", len(keywords), "num", num, "delay", w.settings.Delay)

	opts := make([]kwsearch.SearchOption, 0, len(w.settings.Options)+2)
	opts = append(opts, w.settings.Options...)
	opts = append(opts, kwsearch.WithNum(num), kwsearch.WithStart(1))

	total := len(keywords)
	for i, keyword := range keywords {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		percent := i * 100 / total
		w.observer.OnProgress(percent, fmt.Sprintf("Searching (%d/%d): %s", i+1, total, keyword))

		results, err := w.searcher.SearchKeyword(ctx, keyword, opts...)
		if err != nil && ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		report.Processed++

		switch {
		case err != nil:
			logger.WarnContext(ctx, "keyword failed", "keyword", keyword, "error", err)
			report.Failed = append(report.Failed, KeywordError{Keyword: keyword, Err: err})
			w.observer.OnKeywordError(keyword, err)
			w.observer.OnProgress(percent, fmt.Sprintf("Error (%d/%d): %s", i+1, total, keyword))
		case len(results) == 0:
			w.observer.OnProgress(percent, fmt.Sprintf("No results (%d/%d): %s", i+1, total, keyword))
		default:
			report.Results = append(report.Results, results...)
			w.observer.OnResult(keyword, results)
			w.observer.OnProgress(percent, fmt.Sprintf("Found (%d/%d): %s (%d)", i+1, total, keyword, len(results)))
		}

		if i < total-1 && w.settings.Delay > 0 {
			w.observer.OnProgress(percent, fmt.Sprintf("Waiting... (next: %s)", keywords[i+1]))
			if !sleep(ctx, w.settings.Delay) {
				report.Interrupted = true
				break
			}
		}
	}

	report.FinishedAt = time.Now()
	if report.Interrupted {
		logger.WarnContext(ctx, "batch interrupted", "processed", report.Processed, "keywords", total)
		w.observer.OnProgress(report.Processed*100/total, "Search stopped")
	} else {
		w.observer.OnProgress(100, fmt.Sprintf("Search complete: %d results", len(report.Results)))
	}
	logger.InfoContext(ctx, "batch finished",
		"processed", report.Processed,
		"failed", len(report.Failed),
		"results", len(report.Results),
		"duration", report.Duration(),
	)
	w.observer.OnDone(report)
	return report, nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
