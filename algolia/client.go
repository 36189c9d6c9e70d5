// Package algolia provides a kwsearch.Searcher over an Algolia index and a
// batch writer used to publish collected results into one.
package algolia

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// APIKey is an Algolia API key. Writing results needs a key with write access.
	APIKey string `json:"api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
// It allows for different secret retrieval strategies (static, environment variables, etc.).
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, apiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{AppID: appID, APIKey: apiKey}, nil
	}
}

// EnvSecrets reads ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, fmt.Errorf("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, fmt.Errorf("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{AppID: appID, APIKey: apiKey}, nil
	}
}

type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.APIKey == "" {
			return nil, errors.New("APIKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.APIKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("kwsearch-algolia"),
	}
}

// BatchSaveObjects writes objects to the index in one batch. Every object
// must carry an objectID.
func (c *Client) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	if len(objects) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_save_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objects)),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return err
	}

	index := client.InitIndex(indexName)

	res, err := index.SaveObjects(objects)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to batch save %d objects to index %s", len(objects), indexName))
		return errors.Wrapf(err, "failed to batch save objects to Algolia index %s", indexName)
	}

	if err := res.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch indexing task failed")
		return errors.Wrapf(err, "failed waiting for Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("batch saved %d objects successfully", len(objects)))
	return nil
}

// BatchDeleteObjects removes objects from the index by objectID.
func (c *Client) BatchDeleteObjects(ctx context.Context, indexName string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_delete_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objectIDs)),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return err
	}

	if _, err := client.InitIndex(indexName).DeleteObjects(objectIDs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to batch delete %d objects from index %s", len(objectIDs), indexName))
		return errors.Wrapf(err, "failed to batch delete objects from Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("batch deleted %d objects successfully", len(objectIDs)))
	return nil
}
