package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/letmevibethatforyou/kwsearch/algolia"
	"github.com/letmevibethatforyou/kwsearch/internal/ddb"
	"github.com/letmevibethatforyou/kwsearch/internal/secrets"
	"github.com/urfave/cli/v2"
)

// Indexer is the part of algolia.Client the handler uses.
type Indexer interface {
	BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error
	BatchDeleteObjects(ctx context.Context, indexName string, objectIDs []string) error
}

// Handler mirrors exported search results from the DynamoDB stream into
// an Algolia index.
type Handler struct {
	indexName string
	indexer   Indexer
}

func NewHandler(indexName string, indexer Indexer) *Handler {
	return &Handler{
		indexName: indexName,
		indexer:   indexer,
	}
}

func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e ddb.DynamoDBEvent) error {
	slog.InfoContext(ctx, "Processing DynamoDB stream records", "record_count", len(e.Records))

	var upserts []map[string]interface{}
	var deletes []string

	for _, record := range e.Records {
		switch ddb.DynamoDBOperationType(record.EventName) {
		case ddb.DynamoDBOperationTypeInsert, ddb.DynamoDBOperationTypeModify:
			if obj, ok := toObject(ctx, record); ok {
				upserts = append(upserts, obj)
			}

		case ddb.DynamoDBOperationTypeRemove:
			item, err := ddb.UnmarshalItem(record.Change.Keys)
			if err != nil || item.ID == "" {
				slog.WarnContext(ctx, "Missing ID (pk) in delete record, skipping record", "event_id", record.EventID)
				continue
			}
			deletes = append(deletes, item.ID)

		default:
			slog.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		}
	}

	if err := h.indexer.BatchSaveObjects(ctx, h.indexName, upserts); err != nil {
		slog.ErrorContext(ctx, "Failed to index results", "count", len(upserts), "error", err)
		return err
	}
	if err := h.indexer.BatchDeleteObjects(ctx, h.indexName, deletes); err != nil {
		slog.ErrorContext(ctx, "Failed to delete results", "count", len(deletes), "error", err)
		return err
	}

	slog.InfoContext(ctx, "Synced stream batch", "index", h.indexName, "saved", len(upserts), "deleted", len(deletes))
	return nil
}

// toObject converts a new image into an Algolia object keyed by the
// result id.
func toObject(ctx context.Context, record ddb.DynamoDBEventRecord) (map[string]interface{}, bool) {
	if record.Change.NewImage == nil {
		slog.WarnContext(ctx, "No new image for insert/modify operation, skipping record", "event_id", record.EventID)
		return nil, false
	}

	item, err := ddb.UnmarshalItem(record.Change.NewImage)
	if err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
		return nil, false
	}
	if item.ID == "" {
		slog.WarnContext(ctx, "Missing ID (pk) in record, skipping record")
		return nil, false
	}
	if item.Object == nil {
		slog.WarnContext(ctx, "Missing Object in record, skipping record", "id", item.ID)
		return nil, false
	}

	obj := make(map[string]interface{}, len(item.Object)+2)
	for k, v := range item.Object {
		obj[k] = v
	}
	obj["objectID"] = item.ID
	obj["run_id"] = item.RunID
	return obj, true
}

func main() {
	app := &cli.App{
		Name:  "index-results",
		Usage: "Index search results from a DynamoDB stream into Algolia",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "algolia-index",
				Usage:    "Algolia index receiving the results",
				EnvVars:  []string{"ALGOLIA_INDEX"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	indexName := c.String("algolia-index")
	env := c.String("env")

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.InfoContext(ctx, "Starting results indexer", "index", indexName, "environment", env)

	var fetchSecrets algolia.FetchSecrets
	switch {
	case env != "":
		slog.InfoContext(ctx, "Using AWS Secrets Manager for credentials", "environment", env)
		client, err := secrets.NewClient(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load AWS config", "error", err)
			return err
		}
		fetchSecrets = algolia.AWSSecrets(ctx, client, env)
	case c.String("algolia-app-id") != "" && c.String("algolia-api-key") != "":
		slog.InfoContext(ctx, "Using static credentials from flags")
		fetchSecrets = algolia.StaticSecrets(c.String("algolia-app-id"), c.String("algolia-api-key"))
	default:
		slog.InfoContext(ctx, "Using environment variables for credentials")
		fetchSecrets = algolia.EnvSecrets()
	}

	handler := NewHandler(indexName, algolia.NewClient(fetchSecrets))

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
		slog.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
		return nil
	}
	lambda.Start(handler.HandleDynamoDBEvent)
	return nil
}
