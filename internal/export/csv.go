package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

// Header is the CSV column layout.
var Header = []string{"keyword", "rank", "title", "url", "snippet", "searched_at", "domain"}

const bom = "\ufeff"

// CSVExporter writes UTF-8 CSV files with a byte order mark so that
// spreadsheet applications pick the right encoding.
type CSVExporter struct {
	dir    string
	prefix string
	opts   options
}

// NewCSV returns an exporter writing to dir with file names
// <prefix>_<YYYYMMDD_HHMMSS>.csv.
func NewCSV(dir, prefix string, opts ...Option) *CSVExporter {
	return &CSVExporter{dir: dir, prefix: prefix, opts: newOptions(opts)}
}

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, report *worker.Report) (string, error) {
	if report == nil || len(report.Results) == 0 {
		return "", ErrNoResults
	}

	f, err := createUnique(e.dir, e.prefix+"_"+timestamp(e.opts.now()), ".csv")
	if err != nil {
		return "", err
	}
	path := f.Name()
	e.opts.logger.InfoContext(ctx, "writing CSV", "path", path, "records", len(report.Results))

	if err := writeCSV(f, report); err != nil {
		discard(f, e.opts.logger)
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		discard(f, e.opts.logger)
		return "", errors.Wrapf(err, "failed to close %s", path)
	}
	return path, nil
}

func writeCSV(f *os.File, report *worker.Report) error {
	if _, err := f.WriteString(bom); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, r := range report.Results {
		row := []string{
			r.Query,
			strconv.Itoa(r.Rank),
			r.Title,
			r.URL,
			r.Snippet,
			r.SearchedAt.Format("2006-01-02 15:04:05"),
			r.Domain(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSummary writes a plain-text summary next to the exported file:
// <name>_summary.txt for <name>.csv.
func (e *CSVExporter) WriteSummary(report *worker.Report, exported string) (string, error) {
	dir := e.dir
	base := e.prefix + "_" + timestamp(e.opts.now())
	if exported != "" {
		dir = filepath.Dir(exported)
		base = strings.TrimSuffix(filepath.Base(exported), filepath.Ext(exported))
	}

	f, err := createUnique(dir, base+"_summary", ".txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(Summary(report, e.opts.now())); err != nil {
		discard(f, e.opts.logger)
		return "", errors.Wrapf(err, "failed to write summary %s", f.Name())
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close summary %s", f.Name())
	}
	return f.Name(), nil
}

// Summary renders the run statistics and the record list as text.
func Summary(report *worker.Report, at time.Time) string {
	var b strings.Builder
	b.WriteString("kwsearch - search result summary\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	fmt.Fprintf(&b, "Run: %s\n\n", report.RunID)
	b.WriteString("Statistics:\n")
	fmt.Fprintf(&b, "  Keywords: %d\n", report.Keywords)
	fmt.Fprintf(&b, "  Processed: %d\n", report.Processed)
	fmt.Fprintf(&b, "  Successful: %d\n", report.Succeeded())
	fmt.Fprintf(&b, "  Failed: %d\n", len(report.Failed))
	fmt.Fprintf(&b, "  Success rate: %.1f%%\n", report.SuccessRate())
	fmt.Fprintf(&b, "  Results: %d\n", len(report.Results))
	if report.Interrupted {
		b.WriteString("  Interrupted: yes\n")
	}
	b.WriteString("\n")

	b.WriteString("Results:\n")
	for i, r := range report.Results {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, r.Query)
		fmt.Fprintf(&b, "     %s\n", r.Title)
		fmt.Fprintf(&b, "     %s\n", r.URL)
		fmt.Fprintf(&b, "     %s\n\n", r.Domain())
	}

	if len(report.Failed) > 0 {
		b.WriteString("Failed keywords:\n")
		for _, f := range report.Failed {
			fmt.Fprintf(&b, "  - %s: %v\n", f.Keyword, f.Err)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Generated: %s\n", at.Format("2006-01-02 15:04:05"))
	return b.String()
}
