package google

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
)

// Searcher implements the kwsearch.Searcher interface using Custom Search.
// Filter expressions are not sent to the API.
type Searcher struct {
	client *Client
}

// NewSearcher creates a new Custom Search searcher.
func NewSearcher(client *Client) *Searcher {
	return &Searcher{client: client}
}

// Search implements the kwsearch.Searcher interface. The count option is sent
// as the num request parameter and hits are ranked from the start option.
func (s *Searcher) Search(ctx context.Context, query string, opts ...kwsearch.SearchOption) (*kwsearch.Results, error) {
	startTime := time.Now()

	ctx, span := s.client.tracer.Start(ctx, "google.search",
		trace.WithAttributes(attribute.String("search.query", query)),
	)
	defer span.End()

	if ctx.Err() != nil {
		return nil, kwsearch.ErrCanceled
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, kwsearch.ErrEmptyQuery
	}

	cfg := kwsearch.NewSearchConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("search.num", cfg.Num),
		attribute.Int("search.start", cfg.Start),
	)

	cn, err := s.client.getConn()
	if err != nil {
		return nil, recordFailure(span, err, "failed to get custom search service")
	}

	resp, err := s.client.list(ctx, cn, query, cfg)
	if err != nil {
		return nil, recordFailure(span, err, "custom search request failed")
	}

	results := &kwsearch.Results{
		Items: make([]kwsearch.Result, 0, len(resp.Items)),
		Query: query,
	}

	for i, item := range resp.Items {
		if len(results.Items) >= cfg.Num {
			break
		}
		if item == nil {
			continue
		}

		r := kwsearch.NewResult(query, cfg.Start+i, item.Title, item.Link, item.Snippet)
		r.DisplayLink = item.DisplayLink
		r.FormattedURL = item.FormattedUrl
		r.PageMap = decodePageMap(item.Pagemap)
		results.Items = append(results.Items, r)
	}

	if resp.SearchInformation != nil {
		if total, err := strconv.ParseInt(resp.SearchInformation.TotalResults, 10, 64); err == nil {
			results.Total = total
		}
	}

	if resp.Queries != nil && len(resp.Queries.NextPage) > 0 && resp.Queries.NextPage[0] != nil {
		next := int(resp.Queries.NextPage[0].StartIndex)
		if next > cfg.Start && next <= kwsearch.MaxWindow {
			results.NextStart = &next
		}
	}

	results.Took = time.Since(startTime).Milliseconds()
	span.SetAttributes(attribute.Int("search.result_count", len(results.Items)))
	span.SetStatus(codes.Ok, "search completed")

	return results, nil
}

// Ping runs a one-result search for "test" and checks that the API answers
// with search information.
func (s *Searcher) Ping(ctx context.Context) error {
	ctx, span := s.client.tracer.Start(ctx, "google.ping")
	defer span.End()

	cn, err := s.client.getConn()
	if err != nil {
		return recordFailure(span, err, "failed to get custom search service")
	}

	resp, err := s.client.list(ctx, cn, "test", kwsearch.NewSearchConfig(kwsearch.WithNum(1)))
	if err != nil {
		return recordFailure(span, err, "connection test failed")
	}

	if resp.SearchInformation == nil {
		return recordFailure(span,
			errors.WithSecondaryError(kwsearch.ErrBackendUnavailable, errors.New("response has no search information")),
			"unexpected response")
	}

	span.SetStatus(codes.Ok, "connection ok")
	return nil
}

// list calls cse.list, retrying timeouts and transient failures after a
// fixed retry delay. Rate limits and quota errors are not retried.
func (c *Client) list(ctx context.Context, cn conn, query string, cfg *kwsearch.SearchConfig) (*customsearch.Search, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.retryCount; attempt++ {
		if attempt > 0 {
			c.opts.logger.WarnContext(ctx, "retrying search",
				"query", query,
				"attempt", attempt+1,
				"error", lastErr,
			)
			trace.SpanFromContext(ctx).AddEvent("retry",
				trace.WithAttributes(attribute.Int("attempt", attempt+1)))

			timer := time.NewTimer(c.opts.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, classify(ctx, ctx.Err())
			case <-timer.C:
			}
		}

		resp, err := c.listOnce(ctx, cn, query, cfg)
		if err == nil {
			return resp, nil
		}

		lastErr = classify(ctx, err)
		if ctx.Err() != nil || !retryable(lastErr) {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (c *Client) listOnce(ctx context.Context, cn conn, query string, cfg *kwsearch.SearchConfig) (*customsearch.Search, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	call := cn.svc.Cse.List().
		Q(query).
		Cx(cn.secrets.SearchEngineID).
		Num(int64(cfg.Num)).
		Start(int64(cfg.Start))

	if cfg.Language != "" {
		call = call.Lr(cfg.Language)
	}
	if cfg.SafeSearch != "" {
		call = call.Safe(cfg.SafeSearch)
	}
	if cfg.Country != "" {
		call = call.Gl(cfg.Country)
	}
	if cfg.InterfaceLanguage != "" {
		call = call.Hl(cfg.InterfaceLanguage)
	}
	if cfg.DateRestrict != "" {
		call = call.DateRestrict(cfg.DateRestrict)
	}
	if cfg.FileType != "" {
		call = call.FileType(cfg.FileType)
	}
	if cfg.SiteSearch != "" {
		call = call.SiteSearch(cfg.SiteSearch)
	}

	return call.Context(ctx).Do(googleapi.QueryParameter("key", cn.secrets.APIKey))
}

// classify maps an API or transport failure onto the kwsearch error codes.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return errors.WithSecondaryError(kwsearch.ErrTimeout, err)
		}
		return errors.WithSecondaryError(kwsearch.ErrCanceled, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.WithSecondaryError(kwsearch.ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.WithSecondaryError(kwsearch.ErrTimeout, err)
	}

	return errors.WithSecondaryError(kwsearch.ErrBackendUnavailable, err)
}

func classifyAPIError(apiErr *googleapi.Error) error {
	text := apiErr.Message
	for _, item := range apiErr.Errors {
		text += " " + item.Reason + " " + item.Message
	}
	text = strings.ToLower(text)

	switch {
	case apiErr.Code == 400:
		return errors.WithSecondaryError(kwsearch.ErrBadRequest, apiErr)
	case apiErr.Code == 403 || apiErr.Code == 429:
		if strings.Contains(text, "quota") {
			return errors.WithSecondaryError(kwsearch.ErrQuotaExceeded, apiErr)
		}
		if apiErr.Code == 429 || strings.Contains(text, "limit") {
			return errors.WithSecondaryError(kwsearch.ErrRateLimited, apiErr)
		}
		return errors.WithSecondaryError(kwsearch.ErrUnauthorized, apiErr)
	case apiErr.Code == 401:
		return errors.WithSecondaryError(kwsearch.ErrUnauthorized, apiErr)
	case apiErr.Code >= 500:
		return errors.WithSecondaryError(kwsearch.ErrBackendUnavailable, apiErr)
	default:
		return errors.WithSecondaryError(kwsearch.ErrBadRequest, apiErr)
	}
}

func retryable(err error) bool {
	return errors.IsAny(err, kwsearch.ErrTimeout, kwsearch.ErrBackendUnavailable)
}

// decodePageMap converts the raw pagemap of a hit into a plain map.
func decodePageMap(raw interface{}) map[string]interface{} {
	data, err := sonic.Marshal(raw)
	if err != nil || len(data) == 0 || string(data) == "null" {
		return nil
	}

	var m map[string]interface{}
	if err := sonic.Unmarshal(data, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

func recordFailure(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
