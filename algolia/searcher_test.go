package algolia

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
)

func TestNewSearcher(t *testing.T) {
	client := NewClient(StaticSecrets("test-app", "test-key"))
	searcher := NewSearcher(client, "test-index")

	if searcher == nil {
		t.Fatal("NewSearcher returned nil")
	}

	if searcher.client != client {
		t.Error("Searcher client not set correctly")
	}

	if searcher.indexName != "test-index" {
		t.Errorf("Expected index name 'test-index', got '%s'", searcher.indexName)
	}

	if searcher.pushFilters {
		t.Error("Expected filter pushdown to be off by default")
	}

	if !NewSearcher(client, "test-index", WithFilterPushdown()).pushFilters {
		t.Error("Expected WithFilterPushdown to enable pushdown")
	}
}

func TestBuildSearchParams(t *testing.T) {
	tests := []struct {
		name          string
		pushdown      bool
		opts          []kwsearch.SearchOption
		expectedCount int
	}{
		{
			name:          "default parameters",
			expectedCount: 1, // HitsPerPage option
		},
		{
			name:          "second page",
			opts:          []kwsearch.SearchOption{kwsearch.WithNum(10), kwsearch.WithStart(11)},
			expectedCount: 2, // HitsPerPage and Page options
		},
		{
			name:          "start inside first page",
			opts:          []kwsearch.SearchOption{kwsearch.WithNum(10), kwsearch.WithStart(5)},
			expectedCount: 1,
		},
		{
			name:          "filters without pushdown",
			opts:          []kwsearch.SearchOption{kwsearch.Eq(kwsearch.FieldDomain, "go.dev")},
			expectedCount: 1,
		},
		{
			name:          "filters with pushdown",
			pushdown:      true,
			opts:          []kwsearch.SearchOption{kwsearch.Eq(kwsearch.FieldDomain, "go.dev")},
			expectedCount: 2, // HitsPerPage and Filters options
		},
		{
			name:          "only client-side filters",
			pushdown:      true,
			opts:          []kwsearch.SearchOption{kwsearch.Contains(kwsearch.FieldTitle, "go")},
			expectedCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Searcher{pushFilters: tt.pushdown}
			params := s.buildSearchParams(kwsearch.NewSearchConfig(tt.opts...))
			if len(params) != tt.expectedCount {
				t.Errorf("Expected %d parameters, got %d", tt.expectedCount, len(params))
			}
		})
	}
}

func TestConvertResponse(t *testing.T) {
	cfg := kwsearch.NewSearchConfig(kwsearch.WithNum(2), kwsearch.WithStart(3))
	res := search.QueryRes{
		Hits: []map[string]interface{}{
			{"objectID": "a", "title": "First <em>hit</em>", "url": "https://example.com/a", "snippet": "one"},
			{"objectID": "b", "title": "Second", "link": "example.com/b", "snippet": "two", "display_link": "example.com"},
			{"objectID": "c", "title": "Overflow", "url": "https://example.com/c"},
		},
		NbHits:  6,
		Page:    1,
		NbPages: 3,
	}

	results := convertResponse("golang", cfg, res)

	if len(results.Items) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results.Items))
	}
	if results.Items[0].Rank != 3 || results.Items[1].Rank != 4 {
		t.Errorf("Expected ranks 3 and 4, got %d and %d", results.Items[0].Rank, results.Items[1].Rank)
	}
	if results.Items[0].Title != "First hit" {
		t.Errorf("Expected normalised title, got %q", results.Items[0].Title)
	}
	if results.Items[1].URL != "https://example.com/b" {
		t.Errorf("Expected link fallback with scheme, got %q", results.Items[1].URL)
	}
	if results.Items[1].DisplayLink != "example.com" {
		t.Errorf("Expected display link, got %q", results.Items[1].DisplayLink)
	}
	if results.Total != 6 {
		t.Errorf("Expected total 6, got %d", results.Total)
	}
	if results.NextStart == nil || *results.NextStart != 5 {
		t.Errorf("Expected next start 5, got %v", results.NextStart)
	}

	res.Page = 2
	if last := convertResponse("golang", cfg, res); last.NextStart != nil {
		t.Errorf("Expected no next start on the last page, got %d", *last.NextStart)
	}
}

func TestConvertExpressionToFilter(t *testing.T) {
	tests := []struct {
		name     string
		expr     kwsearch.Expression
		expected string
	}{
		{
			name:     "equality expression",
			expr:     kwsearch.Eq("domain", "go.dev"),
			expected: `domain:"go.dev"`,
		},
		{
			name:     "not equal expression",
			expr:     kwsearch.Ne("domain", "example.com"),
			expected: `NOT domain:"example.com"`,
		},
		{
			name:     "greater than expression",
			expr:     kwsearch.Gt("rank", 1),
			expected: "rank > 1",
		},
		{
			name:     "less than or equal expression",
			expr:     kwsearch.Lte("rank", 5),
			expected: "rank <= 5",
		},
		{
			name:     "range expression",
			expr:     kwsearch.Range("rank", 1, 5),
			expected: "rank >= 1 AND rank <= 5",
		},
		{
			name:     "range expression with nil min",
			expr:     kwsearch.Range("rank", nil, 5),
			expected: "rank <= 5",
		},
		{
			name:     "in expression",
			expr:     kwsearch.In("domain", "a.com", "b.com"),
			expected: `domain:"a.com" OR domain:"b.com"`,
		},
		{
			name:     "exists expression",
			expr:     kwsearch.Exists("snippet"),
			expected: "snippet:*",
		},
		{
			name:     "AND expression",
			expr:     kwsearch.And(kwsearch.Eq("query", "golang"), kwsearch.Gt("rank", 1)),
			expected: `(query:"golang") AND (rank > 1)`,
		},
		{
			name:     "AND keeps convertible parts",
			expr:     kwsearch.And(kwsearch.Eq("query", "golang"), kwsearch.Contains("title", "go")),
			expected: `(query:"golang")`,
		},
		{
			name:     "OR expression",
			expr:     kwsearch.Or(kwsearch.Eq("query", "go"), kwsearch.Eq("query", "rust")),
			expected: `(query:"go") OR (query:"rust")`,
		},
		{
			name:     "OR with client-side branch",
			expr:     kwsearch.Or(kwsearch.Eq("query", "go"), kwsearch.Matches("title", "^go")),
			expected: "",
		},
		{
			name:     "NOT expression",
			expr:     kwsearch.Not(kwsearch.Eq("domain", "ads.example.com")),
			expected: `NOT (domain:"ads.example.com")`,
		},
		{
			name:     "NOT over partial AND",
			expr:     kwsearch.Not(kwsearch.And(kwsearch.Eq("domain", "x.com"), kwsearch.Contains("title", "ad"))),
			expected: "",
		},
		{
			name:     "contains expression",
			expr:     kwsearch.Contains("title", "go"),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convertExpressionToFilter(tt.expr)
			if result != tt.expected {
				t.Errorf("Expected filter '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{field: "title", expected: "title"},
		{field: "display link", expected: `"display link"`},
		{field: "user:id", expected: `"user:id"`},
		{field: "created-at", expected: `"created-at"`},
		{field: "count(items)", expected: `"count(items)"`},
	}

	for _, tt := range tests {
		if result := escapeField(tt.field); result != tt.expected {
			t.Errorf("Expected escaped field '%s', got '%s'", tt.expected, result)
		}
	}
}

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{name: "string value", value: "test", expected: `"test"`},
		{name: "string with quotes", value: `hello "world"`, expected: `"hello \"world\""`},
		{name: "boolean true", value: true, expected: `"true"`},
		{name: "nil value", value: nil, expected: "null"},
		{name: "integer value", value: 42, expected: `"42"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := escapeValue(tt.value); result != tt.expected {
				t.Errorf("Expected escaped value '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestEscapeNumericValue(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{name: "integer", value: 42, expected: "42"},
		{name: "float", value: 3.14, expected: "3.14"},
		{name: "string number", value: "123.45", expected: "123.45"},
		{name: "non-numeric string", value: "abc", expected: `"abc"`},
		{name: "nil", value: nil, expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := escapeNumericValue(tt.value); result != tt.expected {
				t.Errorf("Expected numeric value '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestSearcherInterface(t *testing.T) {
	var _ kwsearch.Searcher = NewSearcher(NewClient(StaticSecrets("test-app", "test-key")), "test-index")
}

func TestSearchWithInvalidClient(t *testing.T) {
	fetchSecrets := func() (Secrets, error) {
		return Secrets{}, fmt.Errorf("failed to fetch secrets")
	}
	searcher := NewSearcher(NewClient(fetchSecrets), "test-index")

	_, err := searcher.Search(context.Background(), "test query")
	if err == nil {
		t.Fatal("Expected error when client initialization fails, got nil")
	}

	if !errors.Is(err, kwsearch.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got: %v", err)
	}

	errStr := fmt.Sprintf("%+v", err)
	if !strings.Contains(errStr, "failed to get Algolia client") {
		t.Errorf("Expected error details to contain 'failed to get Algolia client', got: %v", errStr)
	}
}

func TestSearchRejectsInput(t *testing.T) {
	searcher := NewSearcher(NewClient(StaticSecrets("test-app", "test-key")), "test-index")

	if _, err := searcher.Search(context.Background(), " "); !errors.Is(err, kwsearch.ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
	if _, err := searcher.Search(context.Background(), "go", kwsearch.WithNum(0), kwsearch.WithStart(-1)); !errors.Is(err, kwsearch.ErrInvalidOption) {
		t.Errorf("Expected ErrInvalidOption, got %v", err)
	}
}

func TestSearchWithCanceledContext(t *testing.T) {
	searcher := NewSearcher(NewClient(StaticSecrets("test-app", "test-key")), "test-index")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := searcher.Search(ctx, "test query")
	if !errors.Is(err, kwsearch.ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got: %v", err)
	}
}
