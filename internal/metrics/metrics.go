// Package metrics keeps search statistics in a private Prometheus registry
// and can push them to a Pushgateway at the end of a batch.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const (
	searchesName = "kwsearch_searches_total"
	resultsName  = "kwsearch_results_total"
	durationName = "kwsearch_search_duration_seconds"
	breakerName  = "kwsearch_breaker_open"
)

// SearchBuckets spans a cached hit to a fully retried call.
var SearchBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Recorder owns one registry and its collectors.
type Recorder struct {
	mu       sync.RWMutex
	registry *prometheus.Registry
	searches *prometheus.CounterVec
	results  prometheus.Counter
	duration prometheus.Histogram
	breaker  prometheus.Gauge
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{}
	r.init()
	return r
}

func (r *Recorder) init() {
	r.registry = prometheus.NewRegistry()
	r.searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: searchesName,
			Help: "Searches performed by outcome",
		},
		[]string{"outcome"},
	)
	r.results = prometheus.NewCounter(prometheus.CounterOpts{
		Name: resultsName,
		Help: "Result records returned",
	})
	r.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    durationName,
		Help:    "Search duration including retries",
		Buckets: SearchBuckets,
	})
	r.breaker = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: breakerName,
		Help: "1 while the backend circuit breaker is open",
	})
	r.registry.MustRegister(r.searches, r.results, r.duration, r.breaker)
}

// ObserveSearch records one search call.
func (r *Recorder) ObserveSearch(success bool, results int, took time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outcome := OutcomeFailure
	if success {
		outcome = OutcomeSuccess
	}
	r.searches.WithLabelValues(outcome).Inc()
	r.results.Add(float64(results))
	r.duration.Observe(took.Seconds())
}

// SetBreakerOpen records the breaker state.
func (r *Recorder) SetBreakerOpen(open bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if open {
		r.breaker.Set(1)
	} else {
		r.breaker.Set(0)
	}
}

// Reset drops every recorded value.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry
}

// Snapshot is a point-in-time view of the statistics.
type Snapshot struct {
	TotalSearches      int64
	SuccessfulSearches int64
	FailedSearches     int64
	ResultsFound       int64
	TotalDuration      time.Duration
	BreakerOpen        bool
}

// SuccessRate returns the share of successful searches in percent.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.SuccessfulSearches) / float64(s.TotalSearches) * 100
}

// Snapshot reads the current values back from the registry.
func (r *Recorder) Snapshot() (Snapshot, error) {
	families, err := r.Gatherer().Gather()
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to gather metrics")
	}

	var s Snapshot
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case searchesName:
				n := int64(m.GetCounter().GetValue())
				switch labelValue(m, "outcome") {
				case OutcomeSuccess:
					s.SuccessfulSearches += n
				case OutcomeFailure:
					s.FailedSearches += n
				}
				s.TotalSearches += n
			case resultsName:
				s.ResultsFound = int64(m.GetCounter().GetValue())
			case durationName:
				s.TotalDuration = time.Duration(m.GetHistogram().GetSampleSum() * float64(time.Second))
			case breakerName:
				s.BreakerOpen = m.GetGauge().GetValue() > 0
			}
		}
	}
	return s, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.Gatherer()).PushContext(ctx); err != nil {
		return errors.Wrapf(err, "failed to push metrics to %s", url)
	}
	return nil
}
