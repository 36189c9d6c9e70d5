package export

import (
	"context"
	"fmt"

	"github.com/letmevibethatforyou/kwsearch/internal/ddb"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

// DynamoDBExporter stores one item per record, sorted under the run id.
type DynamoDBExporter struct {
	table  string
	writer *ddb.Writer
	opts   options
}

// NewDynamoDB returns an exporter writing to table through client.
func NewDynamoDB(client ddb.BatchWriteItemAPI, table string, opts ...Option) *DynamoDBExporter {
	return &DynamoDBExporter{
		table:  table,
		writer: ddb.NewWriter(client, table),
		opts:   newOptions(opts),
	}
}

// Export implements Exporter.
func (e *DynamoDBExporter) Export(ctx context.Context, report *worker.Report) (string, error) {
	if report == nil || len(report.Results) == 0 {
		return "", ErrNoResults
	}

	items := make([]ddb.Item, 0, len(report.Results))
	for _, r := range report.Results {
		items = append(items, ddb.NewItem(report.RunID, r))
	}

	e.opts.logger.InfoContext(ctx, "writing DynamoDB items", "table", e.table, "items", len(items))
	if err := e.writer.Write(ctx, items); err != nil {
		return "", err
	}
	return fmt.Sprintf("dynamodb://%s (%d items, run %s)", e.table, len(items), report.RunID), nil
}
