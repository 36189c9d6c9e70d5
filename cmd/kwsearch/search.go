package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/algolia"
	"github.com/letmevibethatforyou/kwsearch/google"
	"github.com/letmevibethatforyou/kwsearch/inmemory"
	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/letmevibethatforyou/kwsearch/internal/engine"
	"github.com/letmevibethatforyou/kwsearch/internal/export"
	"github.com/letmevibethatforyou/kwsearch/internal/secrets"
	"github.com/letmevibethatforyou/kwsearch/internal/ui"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search every keyword and export the results",
		ArgsUsage: "[keyword...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read keywords from a file, one per line",
			},
			&cli.IntFlag{
				Name:    "num",
				Aliases: []string{"n"},
				Usage:   "Results per keyword for this run (1-10); defaults to search.num",
			},
			&cli.Float64Flag{
				Name:  "delay",
				Usage: "Seconds to wait between keywords; defaults to search.delay",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Search backend: google, algolia or inmemory",
			},
			&cli.StringFlag{
				Name:  "fixture",
				Usage: "JSON fixture file for the inmemory provider",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output file format: csv or json",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory for exported files",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Do not write result files",
			},
			&cli.StringFlag{
				Name:    "dynamodb-table",
				Usage:   "Also write results to this DynamoDB table",
				EnvVars: []string{"DYNAMODB_TABLE"},
			},
			&cli.StringFlag{
				Name:  "algolia-index",
				Usage: "Also publish results to this Algolia index",
			},
			&cli.StringFlag{
				Name:  "pushgateway",
				Usage: "Push batch metrics to this Prometheus Pushgateway URL",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print progress, not the records",
			},
		},
		Action: searchAction,
	}
}

func searchAction(c *cli.Context) error {
	ctx := c.Context

	store, err := config.Open(c.String("config"))
	if err != nil {
		return err
	}
	cfg := store.Snapshot()
	if err := applySearchFlags(c, &cfg); err != nil {
		return err
	}

	keywords, err := collectKeywords(c)
	if err != nil {
		return err
	}

	searcher, err := buildSearcher(ctx, cfg, c.String("fixture"))
	if err != nil {
		return err
	}

	eng := engine.New(searcher, engine.WithLogger(slog.Default()))
	settings := worker.SettingsFrom(cfg)

	workerOpts := []worker.Option{
		worker.WithObserver(ui.NewProgressPrinter(c.App.Writer, !c.Bool("quiet"))),
		worker.WithLogger(slog.Default()),
	}
	if cfg.Search.Provider == config.ProviderGoogle {
		workerOpts = append(workerOpts, worker.WithPreflight())
	}

	slog.InfoContext(ctx, "starting batch",
		"keywords", len(keywords),
		"num", settings.Num,
		"provider", cfg.Search.Provider,
		"config", store.Path(),
	)
	report, err := worker.New(eng, settings, workerOpts...).Run(ctx, keywords)
	if err != nil {
		return err
	}

	// Export with a fresh context so an interrupted batch still saves.
	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()

	exported, exportErr := exportReport(exportCtx, c, cfg, report)
	fmt.Fprint(c.App.Writer, ui.RenderReport(report, exported))

	if url := cfg.Metrics.PushgatewayURL; url != "" {
		if err := eng.Recorder().Push(exportCtx, url, cfg.Metrics.Job); err != nil {
			slog.WarnContext(ctx, "failed to push metrics", "error", err)
		}
	}

	return exportErr
}

// applySearchFlags overlays per-run flags on the configuration snapshot.
// Nothing here is persisted.
func applySearchFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("num") {
		n := c.Int("num")
		if n < kwsearch.MinNum || n > kwsearch.MaxNum {
			return errors.WithSecondaryError(kwsearch.ErrInvalidOption,
				errors.Newf("--num must be between %d and %d, got %d", kwsearch.MinNum, kwsearch.MaxNum, n))
		}
		cfg.Search.Num = n
	}
	if d := c.Float64("delay"); d >= 0 {
		cfg.Search.Delay = d
	}
	applyProviderFlags(c, cfg)
	if f := c.String("format"); f != "" {
		cfg.Output.Format = f
	}
	if d := c.String("output-dir"); d != "" {
		cfg.Output.Directory = d
	}
	if t := c.String("dynamodb-table"); t != "" {
		cfg.Output.DynamoDBTable = t
	}
	if i := c.String("algolia-index"); i != "" {
		cfg.Output.AlgoliaIndex = i
	}
	if u := c.String("pushgateway"); u != "" {
		cfg.Metrics.PushgatewayURL = u
	}
	return cfg.Validate()
}

func collectKeywords(c *cli.Context) ([]string, error) {
	keywords := c.Args().Slice()
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open keyword file %s", path)
		}
		defer f.Close()

		fromFile, err := worker.ReadKeywords(f)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, fromFile...)
	}
	keywords = worker.Dedupe(keywords)
	if len(keywords) == 0 {
		return nil, errors.New("no keywords given; pass them as arguments or with --file")
	}
	return keywords, nil
}

// buildSearcher wires the configured backend.
// applyProviderFlags sets the provider from --provider. A --fixture without
// an explicit --provider selects the inmemory backend.
func applyProviderFlags(c *cli.Context, cfg *config.Config) {
	if p := c.String("provider"); p != "" {
		cfg.Search.Provider = p
	}
	if c.String("fixture") != "" && !c.IsSet("provider") {
		cfg.Search.Provider = config.ProviderInMemory
	}
}

func buildSearcher(ctx context.Context, cfg config.Config, fixture string) (kwsearch.Searcher, error) {
	switch cfg.Search.Provider {
	case config.ProviderInMemory:
		if fixture == "" {
			return nil, errors.New("the inmemory provider needs --fixture")
		}
		f, err := os.Open(fixture)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open fixture %s", fixture)
		}
		defer f.Close()

		s := inmemory.New()
		n, err := s.LoadJSON(f)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "loaded fixture documents", "count", n, "fixture", fixture)
		return s, nil

	case config.ProviderAlgolia:
		if cfg.Algolia.Index == "" {
			return nil, errors.New("algolia.index is required for the algolia provider")
		}
		client := algolia.NewClient(algolia.StaticSecrets(cfg.Algolia.AppID, cfg.Algolia.APIKey))
		return algolia.NewSearcher(client, cfg.Algolia.Index), nil

	default:
		fetch, err := googleSecrets(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := google.NewClient(fetch,
			google.WithEndpoint(cfg.GoogleAPI.Endpoint),
			google.WithTimeout(time.Duration(cfg.Search.Timeout)*time.Second),
			google.WithRetry(cfg.Search.RetryCount, time.Duration(cfg.Search.RetryDelay*float64(time.Second))),
			google.WithLogger(slog.Default()),
		)
		return google.NewSearcher(client), nil
	}
}

func googleSecrets(ctx context.Context, cfg config.Config) (google.FetchSecrets, error) {
	if arn := strings.TrimSpace(cfg.GoogleAPI.SecretARN); arn != "" {
		slog.InfoContext(ctx, "using AWS Secrets Manager for Google credentials", "secret_arn", arn)
		client, err := secrets.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return google.AWSSecretsFromARN(ctx, client, arn), nil
	}
	if !cfg.HasCredentials() {
		return nil, errors.WithSecondaryError(kwsearch.ErrUnauthorized,
			errors.New("Google API credentials are not configured; run 'kwsearch settings init' and edit the file, or set GOOGLE_API_KEY and GOOGLE_CUSTOM_SEARCH_ENGINE_ID"))
	}
	return google.StaticSecrets(cfg.GoogleAPI.APIKey, cfg.GoogleAPI.CustomSearchEngineID), nil
}

// exportReport runs every configured sink and returns the locations
// written. A failing sink does not stop the others.
func exportReport(ctx context.Context, c *cli.Context, cfg config.Config, report *worker.Report) ([]string, error) {
	if len(report.Results) == 0 {
		slog.WarnContext(ctx, "no results to export")
		return nil, nil
	}

	var exported []string
	var errs []error

	if !c.Bool("no-save") {
		var file export.Exporter
		csvExp := export.NewCSV(cfg.Output.Directory, cfg.Output.FilenamePrefix)
		if cfg.Output.Format == config.FormatJSON {
			file = export.NewJSON(cfg.Output.Directory, cfg.Output.FilenamePrefix)
		} else {
			file = csvExp
		}

		path, err := file.Export(ctx, report)
		if err != nil {
			errs = append(errs, err)
		} else {
			exported = append(exported, path)
			if summary, err := csvExp.WriteSummary(report, path); err != nil {
				slog.WarnContext(ctx, "failed to write summary", "error", err)
			} else {
				exported = append(exported, summary)
			}
		}
	}

	if table := cfg.Output.DynamoDBTable; table != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "failed to load AWS config"))
		} else {
			loc, err := export.NewDynamoDB(dynamodb.NewFromConfig(awsCfg), table).Export(ctx, report)
			if err != nil {
				errs = append(errs, err)
			} else {
				exported = append(exported, loc)
			}
		}
	}

	if index := cfg.Output.AlgoliaIndex; index != "" {
		client := algolia.NewClient(algolia.StaticSecrets(cfg.Algolia.AppID, cfg.Algolia.APIKey))
		loc, err := export.NewAlgolia(client, index).Export(ctx, report)
		if err != nil {
			errs = append(errs, err)
		} else {
			exported = append(exported, loc)
		}
	}

	return exported, errors.Join(errs...)
}
