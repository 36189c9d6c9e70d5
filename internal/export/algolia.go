package export

import (
	"context"
	"fmt"

	"github.com/letmevibethatforyou/kwsearch/internal/ddb"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

// ObjectSaver is implemented by algolia.Client.
type ObjectSaver interface {
	BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error
}

// AlgoliaExporter publishes records as objects of an index.
type AlgoliaExporter struct {
	saver ObjectSaver
	index string
	opts  options
}

// NewAlgolia returns an exporter saving into index.
func NewAlgolia(saver ObjectSaver, index string, opts ...Option) *AlgoliaExporter {
	return &AlgoliaExporter{saver: saver, index: index, opts: newOptions(opts)}
}

// Export implements Exporter. Objects carry the same fields as DynamoDB
// items, with objectID set to the item id and run_id to the batch.
func (e *AlgoliaExporter) Export(ctx context.Context, report *worker.Report) (string, error) {
	if report == nil || len(report.Results) == 0 {
		return "", ErrNoResults
	}

	objects := make([]map[string]interface{}, 0, len(report.Results))
	for _, r := range report.Results {
		item := ddb.NewItem(report.RunID, r)
		obj := item.Object
		obj["objectID"] = item.ID
		obj["run_id"] = report.RunID
		objects = append(objects, obj)
	}

	e.opts.logger.InfoContext(ctx, "saving Algolia objects", "index", e.index, "objects", len(objects))
	if err := e.saver.BatchSaveObjects(ctx, e.index, objects); err != nil {
		return "", err
	}
	return fmt.Sprintf("algolia://%s (%d objects)", e.index, len(objects)), nil
}
