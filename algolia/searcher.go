package algolia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Searcher implements the kwsearch.Searcher interface using Algolia.
type Searcher struct {
	client      *Client
	indexName   string
	pushFilters bool
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithFilterPushdown translates filter expressions into Algolia filters. The
// filtered attributes must be declared as facets on the index.
func WithFilterPushdown() SearcherOption {
	return func(s *Searcher) { s.pushFilters = true }
}

// NewSearcher creates a new Algolia searcher for the specified index.
func NewSearcher(client *Client, indexName string, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		client:    client,
		indexName: indexName,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search implements the kwsearch.Searcher interface. Num maps to hits per
// page and Start is aligned down to the page containing it.
func (s *Searcher) Search(ctx context.Context, query string, opts ...kwsearch.SearchOption) (*kwsearch.Results, error) {
	startTime := time.Now()

	ctx, span := s.client.tracer.Start(ctx, "algolia.search",
		trace.WithAttributes(
			attribute.String("algolia.index_name", s.indexName),
			attribute.String("search.query", query),
		),
	)
	defer span.End()

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

	algoliaClient, err := s.client.getClient()
	if err != nil {
		err = errors.WithSecondaryError(
			kwsearch.ErrBackendUnavailable,
			errors.Wrapf(err, "failed to get Algolia client"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return nil, err
	}

	index := algoliaClient.InitIndex(s.indexName)

	res, err := index.Search(query, s.buildSearchParams(cfg)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Algolia search failed")

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, kwsearch.ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, kwsearch.ErrCanceled
		}

		return nil, errors.WithSecondaryError(
			kwsearch.ErrBackendUnavailable,
			errors.Wrapf(err, "Algolia search failed"),
		)
	}

	results := convertResponse(query, cfg, res)
	results.Took = time.Since(startTime).Milliseconds()

	span.SetAttributes(attribute.Int("search.result_count", len(results.Items)))
	span.SetStatus(codes.Ok, "search completed")
	return results, nil
}

func convertResponse(query string, cfg *kwsearch.SearchConfig, res search.QueryRes) *kwsearch.Results {
	results := &kwsearch.Results{
		Items: make([]kwsearch.Result, 0, len(res.Hits)),
		Total: int64(res.NbHits),
		Query: query,
	}

	firstRank := res.Page*cfg.Num + 1
	for i, hit := range res.Hits {
		if len(results.Items) >= cfg.Num {
			break
		}

		link := stringAttr(hit, "url")
		if link == "" {
			link = stringAttr(hit, "link")
		}

		r := kwsearch.NewResult(query, firstRank+i, stringAttr(hit, "title"), link, stringAttr(hit, "snippet"))
		r.DisplayLink = stringAttr(hit, "display_link")
		results.Items = append(results.Items, r)
	}

	nextPage := res.Page + 1
	if nextPage < res.NbPages {
		next := nextPage*cfg.Num + 1
		if next <= kwsearch.MaxWindow {
			results.NextStart = &next
		}
	}

	return results
}

func stringAttr(hit map[string]interface{}, name string) string {
	if v, ok := hit[name].(string); ok {
		return v
	}
	return ""
}

// buildSearchParams converts kwsearch.SearchConfig to Algolia search parameters
func (s *Searcher) buildSearchParams(cfg *kwsearch.SearchConfig) []interface{} {
	params := []interface{}{opt.HitsPerPage(cfg.Num)}
	if page := (cfg.Start - 1) / cfg.Num; page > 0 {
		params = append(params, opt.Page(page))
	}

	if !s.pushFilters || len(cfg.Filters) == 0 {
		return params
	}

	filterStrings := make([]string, 0, len(cfg.Filters))
	for _, expr := range cfg.Filters {
		if filterStr := convertExpressionToFilter(expr); filterStr != "" {
			filterStrings = append(filterStrings, filterStr)
		}
	}
	if len(filterStrings) > 0 {
		params = append(params, opt.Filters(strings.Join(filterStrings, " AND ")))
	}

	return params
}

// convertExpressionToFilter converts an expression to an Algolia filter
// string. Expressions Algolia cannot express (contains, regular expressions)
// yield "" and are left to client-side evaluation.
func convertExpressionToFilter(expr kwsearch.Expression) string {
	switch e := expr.(type) {
	case kwsearch.AndExpr:
		return joinFilters(e.Exprs, " AND ")
	case kwsearch.OrExpr:
		return joinFilters(e.Exprs, " OR ")
	case kwsearch.NotExpr:
		if !convertible(e.Inner) {
			return ""
		}
		return "NOT (" + convertExpressionToFilter(e.Inner) + ")"
	case kwsearch.CompareExpr:
		return convertCompareExpression(e)
	case kwsearch.InExpr:
		parts := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			parts = append(parts, fmt.Sprintf("%s:%s", escapeField(e.Field), escapeValue(v)))
		}
		return strings.Join(parts, " OR ")
	case kwsearch.RangeExpr:
		return convertRangeExpression(e)
	case kwsearch.ExistsExpr:
		return fmt.Sprintf("%s:*", escapeField(e.Field))
	default:
		return ""
	}
}

// convertible reports whether expr translates without dropping any part.
// Only such expressions may be negated or OR-ed server side.
func convertible(expr kwsearch.Expression) bool {
	switch e := expr.(type) {
	case kwsearch.AndExpr:
		return allConvertible(e.Exprs)
	case kwsearch.OrExpr:
		return allConvertible(e.Exprs)
	case kwsearch.NotExpr:
		return convertible(e.Inner)
	case kwsearch.CompareExpr:
		return e.Op != kwsearch.OpContains && convertCompareExpression(e) != ""
	case kwsearch.InExpr:
		return len(e.Values) > 0
	case kwsearch.RangeExpr:
		return e.Min != nil || e.Max != nil
	case kwsearch.ExistsExpr:
		return true
	default:
		return false
	}
}

func allConvertible(exprs []kwsearch.Expression) bool {
	for _, e := range exprs {
		if !convertible(e) {
			return false
		}
	}
	return len(exprs) > 0
}

func joinFilters(exprs []kwsearch.Expression, sep string) string {
	filters := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, "("+filter+")")
		}
	}
	if sep == " OR " && !allConvertible(exprs) {
		return ""
	}
	return strings.Join(filters, sep)
}

func convertCompareExpression(e kwsearch.CompareExpr) string {
	field := escapeField(e.Field)
	switch e.Op {
	case kwsearch.OpEq:
		return fmt.Sprintf("%s:%s", field, escapeValue(e.Value))
	case kwsearch.OpNe:
		return fmt.Sprintf("NOT %s:%s", field, escapeValue(e.Value))
	case kwsearch.OpGt:
		return fmt.Sprintf("%s > %s", field, escapeNumericValue(e.Value))
	case kwsearch.OpGte:
		return fmt.Sprintf("%s >= %s", field, escapeNumericValue(e.Value))
	case kwsearch.OpLt:
		return fmt.Sprintf("%s < %s", field, escapeNumericValue(e.Value))
	case kwsearch.OpLte:
		return fmt.Sprintf("%s <= %s", field, escapeNumericValue(e.Value))
	default:
		return ""
	}
}

func convertRangeExpression(expr kwsearch.RangeExpr) string {
	var filters []string

	if expr.Min != nil {
		filters = append(filters, fmt.Sprintf("%s >= %s", escapeField(expr.Field), escapeNumericValue(expr.Min)))
	}

	if expr.Max != nil {
		filters = append(filters, fmt.Sprintf("%s <= %s", escapeField(expr.Field), escapeNumericValue(expr.Max)))
	}

	return strings.Join(filters, " AND ")
}

// escapeField escapes field names for Algolia filters
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue escapes string values for Algolia filters
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `"`, `\"`)
		return fmt.Sprintf(`"%s"`, escaped)
	case bool:
		return fmt.Sprintf(`"%s"`, strconv.FormatBool(v))
	default:
		return fmt.Sprintf(`"%v"`, value)
	}
}

// escapeNumericValue escapes numeric values for Algolia filters
func escapeNumericValue(value interface{}) string {
	if value == nil {
		return "0"
	}

	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		str := fmt.Sprintf("%v", value)
		if _, err := strconv.ParseFloat(str, 64); err == nil {
			return str
		}
		return escapeValue(value)
	}
}
