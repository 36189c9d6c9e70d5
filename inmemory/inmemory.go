// Package inmemory provides an offline kwsearch.Searcher over documents held
// in memory, loaded by hand or from JSON fixtures.
package inmemory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/segmentio/ksuid"
)

// Document represents a JSON document in the in-memory database.
type Document struct {
	// ID is the unique identifier for the document.
	ID string
	// Fields contains the document's data as key-value pairs. The title,
	// url (or link), snippet and display_link keys become result fields.
	Fields map[string]interface{}
}

// Searcher implements the kwsearch.Searcher interface using an in-memory store.
type Searcher struct {
	mu        sync.RWMutex
	documents []Document
	idIndex   map[string]int // maps document ID to index in documents slice
}

// New creates a new in-memory searcher.
// The searcher is ready to use and is safe for concurrent operations.
func New() *Searcher {
	return &Searcher{
		documents: make([]Document, 0),
		idIndex:   make(map[string]int),
	}
}

// AddDocument adds a document to the in-memory store.
// If a document with the same ID already exists, it will be updated.
func (s *Searcher) AddDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.idIndex[doc.ID]; exists {
		s.documents[idx] = doc
	} else {
		s.idIndex[doc.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}
}

// AddJSON adds a JSON object as a document.
func (s *Searcher) AddJSON(id string, jsonData []byte) error {
	var fields map[string]interface{}
	if err := sonic.Unmarshal(jsonData, &fields); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}

	s.AddDocument(Document{
		ID:     id,
		Fields: fields,
	})
	return nil
}

// LoadJSON reads a JSON array of objects such as
// {"title": "...", "link": "...", "snippet": "..."} and adds each as a
// document. Objects without an "id" get a generated one. It returns the
// number of documents added.
func (s *Searcher) LoadJSON(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read fixtures")
	}

	var items []map[string]interface{}
	if err := sonic.Unmarshal(data, &items); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal fixtures")
	}

	for _, fields := range items {
		id, _ := fields["id"].(string)
		if id == "" {
			id = ksuid.New().String()
		}
		s.AddDocument(Document{ID: id, Fields: fields})
	}

	return len(items), nil
}

// RemoveDocument removes a document by ID from the in-memory store.
// Returns true if the document was found and removed, false if the document was not found.
func (s *Searcher) RemoveDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.idIndex[id]
	if !exists {
		return false
	}

	s.documents = append(s.documents[:idx], s.documents[idx+1:]...)

	delete(s.idIndex, id)
	for i := idx; i < len(s.documents); i++ {
		s.idIndex[s.documents[i].ID] = i
	}

	return true
}

// Clear removes all documents from the store.
func (s *Searcher) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = make([]Document, 0)
	s.idIndex = make(map[string]int)
}

// Size returns the number of documents currently stored.
func (s *Searcher) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Ping always succeeds.
func (s *Searcher) Ping(ctx context.Context) error {
	return nil
}

// Search implements the kwsearch.Searcher interface. Matches are ordered by
// score, filtered, then paged by Start and Num.
func (s *Searcher) Search(ctx context.Context, query string, opts ...kwsearch.SearchOption) (*kwsearch.Results, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return nil, kwsearch.ErrCanceled
	default:
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, kwsearch.ErrEmptyQuery
	}

	cfg := kwsearch.NewSearchConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []scoredDocument
	for _, doc := range s.documents {
		select {
		case <-ctx.Done():
			return nil, kwsearch.ErrCanceled
		default:
		}

		score := scoreDocument(doc, query)
		if score == 0 {
			continue
		}

		// Rank is provisional until ordering is known.
		if !kwsearch.MatchesAll(toResult(doc, query, 1), cfg.Filters) {
			continue
		}

		matches = append(matches, scoredDocument{document: doc, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	first := cfg.Start - 1
	end := first + cfg.Num
	if end > len(matches) {
		end = len(matches)
	}
	if first > len(matches) {
		first = len(matches)
	}

	results := &kwsearch.Results{
		Items: make([]kwsearch.Result, 0, end-first),
		Total: int64(len(matches)),
		Query: query,
	}

	for i := first; i < end; i++ {
		results.Items = append(results.Items, toResult(matches[i].document, query, i+1))
	}

	if end < len(matches) && end+1 <= kwsearch.MaxWindow {
		next := end + 1
		results.NextStart = &next
	}

	results.Took = time.Since(startTime).Milliseconds()
	return results, nil
}

type scoredDocument struct {
	document Document
	score    float64
}

func toResult(doc Document, query string, rank int) kwsearch.Result {
	link := stringField(doc.Fields, "url")
	if link == "" {
		link = stringField(doc.Fields, "link")
	}

	r := kwsearch.NewResult(query, rank,
		stringField(doc.Fields, "title"),
		link,
		stringField(doc.Fields, "snippet"),
	)
	r.DisplayLink = stringField(doc.Fields, "display_link")
	return r
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// scoreDocument scores one point per field containing a query term, boosted
// by half when every term matched.
func scoreDocument(doc Document, query string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 1.0
	}

	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		termMatched := false
		for _, value := range doc.Fields {
			if valueContainsTerm(value, term) {
				termMatched = true
				score += 1.0
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	if matchedTerms == 0 {
		return 0
	}

	if matchedTerms == len(terms) {
		score *= 1.5
	}

	return score
}

// valueContainsTerm checks if a value contains the search term.
func valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if valueContainsTerm(item, term) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			if valueContainsTerm(item, term) {
				return true
			}
		}
	case nil:
		return false
	default:
		return strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), term)
	}
	return false
}
