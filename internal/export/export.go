// Package export writes the records of a finished batch to their sinks:
// timestamped CSV or JSON files, a DynamoDB table and an Algolia index.
package export

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

// ErrNoResults is returned when a batch produced nothing to export.
var ErrNoResults = errors.New("export: no results")

// maxSuffix bounds the _001.._999 overwrite-avoidance suffixes.
const maxSuffix = 999

// Exporter writes a batch report somewhere and returns where it went.
type Exporter interface {
	Export(ctx context.Context, report *worker.Report) (string, error)
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an exporter.
type Option func(*options)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// createUnique creates <dir>/<base><ext>, falling back to
// <base>_001<ext> .. <base>_999<ext> when the name is taken.
func createUnique(dir, base, ext string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", dir)
	}

	name := base + ext
	for i := 0; i <= maxSuffix; i++ {
		if i > 0 {
			name = fmt.Sprintf("%s_%03d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, errors.Wrapf(err, "failed to create %s", name)
		}
	}
	return nil, errors.Newf("no free file name for %s%s after %d attempts", base, ext, maxSuffix)
}

// timestamp formats t the way output file names carry it.
func timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// discard closes and removes a partially written file.
func discard(f *os.File, logger *slog.Logger) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove partial file", "path", f.Name(), "error", err)
		return
	}
	logger.Info("removed partial file", "path", f.Name())
}
