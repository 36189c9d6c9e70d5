package export

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

var jsonAPI = sonic.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// jsonRecord is the exported shape of one result.
type jsonRecord struct {
	Keyword     string    `json:"keyword"`
	Rank        int       `json:"rank"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Snippet     string    `json:"snippet"`
	Domain      string    `json:"domain"`
	DisplayLink string    `json:"display_link,omitempty"`
	SearchedAt  time.Time `json:"searched_at"`
}

func toJSONRecords(results []kwsearch.Result) []jsonRecord {
	out := make([]jsonRecord, 0, len(results))
	for _, r := range results {
		out = append(out, jsonRecord{
			Keyword:     r.Query,
			Rank:        r.Rank,
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Snippet,
			Domain:      r.Domain(),
			DisplayLink: r.DisplayLink,
			SearchedAt:  r.SearchedAt,
		})
	}
	return out
}

// JSONExporter writes an indented JSON array of records.
type JSONExporter struct {
	dir    string
	prefix string
	opts   options
}

// NewJSON returns an exporter writing <prefix>_<YYYYMMDD_HHMMSS>.json to dir.
func NewJSON(dir, prefix string, opts ...Option) *JSONExporter {
	return &JSONExporter{dir: dir, prefix: prefix, opts: newOptions(opts)}
}

// Export implements Exporter.
func (e *JSONExporter) Export(ctx context.Context, report *worker.Report) (string, error) {
	if report == nil || len(report.Results) == 0 {
		return "", ErrNoResults
	}

	data, err := jsonAPI.MarshalIndent(toJSONRecords(report.Results), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode results")
	}

	f, err := createUnique(e.dir, e.prefix+"_"+timestamp(e.opts.now()), ".json")
	if err != nil {
		return "", err
	}
	path := f.Name()
	e.opts.logger.InfoContext(ctx, "writing JSON", "path", path, "records", len(report.Results))

	if _, err := f.Write(append(data, '\n')); err != nil {
		discard(f, e.opts.logger)
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		discard(f, e.opts.logger)
		return "", errors.Wrapf(err, "failed to close %s", path)
	}
	return path, nil
}
