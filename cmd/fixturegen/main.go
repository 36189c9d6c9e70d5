package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/internal/ddb"
	"github.com/letmevibethatforyou/kwsearch/internal/logging"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

// Hit is one fixture entry in the format the inmemory provider loads.
type Hit struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"display_link"`
}

var (
	domains = []string{
		"example.com", "docs.example.org", "blog.example.net", "wiki.example.jp",
		"news.example.com", "forum.example.org", "learn.example.dev",
	}

	titleForms = []string{
		"%s - Official Site",
		"Getting started with %s",
		"%s explained",
		"Top 10 %s tips",
		"What is %s?",
		"%s news and updates",
		"A beginner's guide to %s",
		"%s: frequently asked questions",
	}

	snippetForms = []string{
		"Everything you need to know about %s, from the basics to advanced topics.",
		"Read the latest articles on %s written by practitioners.",
		"A practical introduction to %s with examples.",
		"Compare options and find the best resources for %s.",
	}
)

// generateHits builds n hits for keyword. The output depends only on the
// keyword, n and the state of rng.
func generateHits(rng *rand.Rand, keyword string, n int) []Hit {
	slug := strings.ReplaceAll(strings.ToLower(keyword), " ", "-")
	hits := make([]Hit, 0, n)
	for i := 0; i < n; i++ {
		domain := domains[rng.IntN(len(domains))]
		hits = append(hits, Hit{
			ID:          fmt.Sprintf("%s-%03d", slug, i+1),
			Title:       fmt.Sprintf(titleForms[rng.IntN(len(titleForms))], keyword),
			Link:        fmt.Sprintf("https://%s/%s/%d", domain, slug, i+1),
			Snippet:     fmt.Sprintf(snippetForms[rng.IntN(len(snippetForms))], keyword),
			DisplayLink: domain,
		})
	}
	return hits
}

func writeFixture(path string, hits []Hit) error {
	data, err := sonic.ConfigStd.MarshalIndent(hits, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode fixture")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write fixture %s", path)
	}
	return nil
}

// seedTable stores hits as exported result items under one run id.
func seedTable(ctx context.Context, client ddb.BatchWriteItemAPI, tableName string, byKeyword map[string][]Hit) (string, error) {
	runID := ksuid.New().String()
	now := time.Now()

	var items []ddb.Item
	for keyword, hits := range byKeyword {
		for i, h := range hits {
			r := kwsearch.NewResult(keyword, i+1, h.Title, h.Link, h.Snippet)
			r.DisplayLink = h.DisplayLink
			r.SearchedAt = now
			items = append(items, ddb.NewItem(runID, r))
		}
	}

	if err := ddb.NewWriter(client, tableName).Write(ctx, items); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Seeded DynamoDB table", "table", tableName, "items", len(items), "run_id", runID)
	return runID, nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	keywords := c.Args().Slice()
	if len(keywords) == 0 {
		return errors.New("pass at least one keyword")
	}
	perKeyword := c.Int("per-keyword")
	if perKeyword < 1 || perKeyword > kwsearch.MaxWindow {
		return errors.Newf("--per-keyword must be between 1 and %d", kwsearch.MaxWindow)
	}

	rng := rand.New(rand.NewPCG(c.Uint64("seed"), c.Uint64("seed")^0x9e3779b97f4a7c15))

	byKeyword := make(map[string][]Hit, len(keywords))
	var all []Hit
	for _, k := range keywords {
		hits := generateHits(rng, k, perKeyword)
		byKeyword[k] = hits
		all = append(all, hits...)
	}

	out := c.String("out")
	if err := writeFixture(out, all); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Wrote fixture", "path", out, "hits", len(all), "keywords", len(keywords))

	if tableName := c.String("table-name"); tableName != "" {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load AWS config")
		}
		if _, err := seedTable(ctx, dynamodb.NewFromConfig(cfg), tableName, byKeyword); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if logging.OnAWS() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:      "fixturegen",
		Usage:     "Generate synthetic search hits for the inmemory provider",
		ArgsUsage: "keyword...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Fixture file to write",
				Value:   "fixture.json",
			},
			&cli.IntFlag{
				Name:    "per-keyword",
				Aliases: []string{"n"},
				Usage:   "Number of hits per keyword",
				Value:   10,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed",
				Value: 1,
			},
			&cli.StringFlag{
				Name:    "table-name",
				Aliases: []string{"t"},
				Usage:   "Also seed this DynamoDB table with the hits as exported results",
				EnvVars: []string{"TABLE_NAME"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
