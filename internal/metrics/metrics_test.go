package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSnapshot(t *testing.T) {
	r := New()

	empty, err := r.Snapshot()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	if empty.TotalSearches != 0 || empty.SuccessRate() != 0 {
		t.Errorf("Expected empty snapshot, got %+v", empty)
	}

	r.ObserveSearch(true, 5, 200*time.Millisecond)
	r.ObserveSearch(true, 3, 300*time.Millisecond)
	r.ObserveSearch(false, 0, 500*time.Millisecond)
	r.SetBreakerOpen(true)

	s, err := r.Snapshot()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	if s.TotalSearches != 3 || s.SuccessfulSearches != 2 || s.FailedSearches != 1 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.ResultsFound != 8 {
		t.Errorf("Expected 8 results, got %d", s.ResultsFound)
	}
	if s.TotalDuration < 999*time.Millisecond || s.TotalDuration > 1001*time.Millisecond {
		t.Errorf("Expected total duration 1s, got %v", s.TotalDuration)
	}
	if rate := s.SuccessRate(); rate < 66.6 || rate > 66.7 {
		t.Errorf("Expected success rate 66.67, got %f", rate)
	}
	if !s.BreakerOpen {
		t.Error("Expected breaker to be reported open")
	}
}

func TestReset(t *testing.T) {
	r := New()
	r.ObserveSearch(true, 2, time.Second)
	r.Reset()

	s, err := r.Snapshot()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	if s.TotalSearches != 0 || s.ResultsFound != 0 {
		t.Errorf("Expected zeroed snapshot after reset, got %+v", s)
	}
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.ObserveSearch(true, 1, time.Second)

	if err := r.Push(context.Background(), srv.URL, "kwsearch"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if gotPath != "/metrics/job/kwsearch" {
		t.Errorf("Expected push to /metrics/job/kwsearch, got %s", gotPath)
	}
	if !strings.Contains(gotBody, "kwsearch_searches_total") {
		t.Error("Expected pushed body to contain the searches counter")
	}
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := New().Push(context.Background(), srv.URL, "kwsearch"); err == nil {
		t.Error("Expected error from failing pushgateway")
	}
}
