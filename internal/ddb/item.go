package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/segmentio/ksuid"
)

// MaxBatchSize is the BatchWriteItem request limit.
const MaxBatchSize = 25

// maxUnprocessedRounds bounds the resubmission of throttled writes.
const maxUnprocessedRounds = 5

// Item is one exported search result.
type Item struct {
	ID     string         `dynamodbav:"pk"`     // result id
	RunID  string         `dynamodbav:"sk"`     // batch run id
	Object map[string]any `dynamodbav:"object"` // result fields
}

// NewItem builds the item for r within run runID.
func NewItem(runID string, r kwsearch.Result) Item {
	return Item{
		ID:    ksuid.New().String(),
		RunID: runID,
		Object: map[string]any{
			"keyword":      r.Query,
			"rank":         r.Rank,
			"title":        r.Title,
			"url":          r.URL,
			"snippet":      r.Snippet,
			"domain":       r.Domain(),
			"display_link": r.DisplayLink,
			"searched_at":  r.SearchedAt.UTC().Format(time.RFC3339),
		},
	}
}

// BatchWriteItemAPI is the subset of the DynamoDB client the writer needs.
type BatchWriteItemAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Writer puts items into one table in batches of MaxBatchSize.
type Writer struct {
	client BatchWriteItemAPI
	table  string
}

// NewWriter returns a Writer for table.
func NewWriter(client BatchWriteItemAPI, table string) *Writer {
	return &Writer{client: client, table: table}
}

// Write stores items, resubmitting unprocessed entries a bounded number of times.
func (w *Writer) Write(ctx context.Context, items []Item) error {
	for start := 0; start < len(items); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(items))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			av, err := attributevalue.MarshalMap(item)
			if err != nil {
				return errors.Wrapf(err, "failed to marshal item %s", item.ID)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}

		if err := w.writeBatch(ctx, requests); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{w.table: requests}
	for round := 0; round < maxUnprocessedRounds; round++ {
		out, err := w.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return errors.Wrapf(err, "failed to write batch to %s", w.table)
		}
		if len(out.UnprocessedItems[w.table]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
	}
	return errors.Newf("%d items left unprocessed in %s", len(pending[w.table]), w.table)
}
