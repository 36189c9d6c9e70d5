package kwsearch

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Result represents a single search hit.
type Result struct {
	// Rank is the 1-based position of the hit for its query.
	Rank int `json:"rank"`

	// Title is the normalised page title.
	Title string `json:"title"`

	// URL is the normalised link of the hit.
	URL string `json:"url"`

	// Snippet is the normalised text excerpt.
	Snippet string `json:"snippet"`

	// DisplayLink is the abridged host shown by the search engine.
	DisplayLink string `json:"display_link,omitempty"`

	// FormattedURL is the URL as displayed by the search engine.
	FormattedURL string `json:"formatted_url,omitempty"`

	// Query is the keyword that produced this hit.
	Query string `json:"query"`

	// SearchedAt is when the hit was retrieved.
	SearchedAt time.Time `json:"searched_at"`

	// PageMap holds structured data attached to the hit, if any.
	PageMap map[string]interface{} `json:"page_map,omitempty"`
}

// Results represents a collection of search results with metadata.
type Results struct {
	// Items contains the individual search results ordered by rank.
	Items []Result

	// Total is the total number of matching documents reported by the backend.
	Total int64

	// Took is the time taken to execute the search in milliseconds.
	Took int64

	// Query is the original query string for reference.
	Query string

	// NextStart is the Start value of the next page, nil on the last page.
	NextStart *int
}

// NewResult builds a Result with normalised text fields and URL.
func NewResult(query string, rank int, title, link, snippet string) Result {
	return Result{
		Rank:       rank,
		Title:      NormalizeText(title),
		URL:        NormalizeURL(link),
		Snippet:    NormalizeText(snippet),
		Query:      query,
		SearchedAt: time.Now(),
	}
}

var validURL = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// Valid reports whether the record carries enough data to be kept.
func (r Result) Valid() bool {
	if r.Title == "" && r.Snippet == "" {
		return false
	}
	if r.URL == "" || !validURL.MatchString(r.URL) {
		return false
	}
	return r.Rank >= 1 && r.Rank <= MaxWindow
}

// Domain returns the lower-cased host of the URL, or "" if it cannot be parsed.
func (r Result) Domain() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ShortSnippet returns the snippet cut to max runes. The cut moves back to
// the last space when that space lies in the final fifth of the window.
func (r Result) ShortSnippet(max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(r.Snippet)
	if len(runes) <= max {
		return r.Snippet
	}

	truncated := runes[:max]
	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if truncated[i] == ' ' {
			lastSpace = i
			break
		}
	}
	if float64(lastSpace) > float64(max)*0.8 {
		truncated = truncated[:lastSpace]
	}

	return string(truncated) + "..."
}
