package main

import (
	"context"
	"fmt"
	"time"

	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/letmevibethatforyou/kwsearch/internal/engine"
	"github.com/letmevibethatforyou/kwsearch/internal/ui"
	"github.com/urfave/cli/v2"
)

func testConnectionCommand() *cli.Command {
	return &cli.Command{
		Name:  "test-connection",
		Usage: "Check credentials and connectivity of the configured backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Search backend: google, algolia or inmemory",
			},
			&cli.StringFlag{
				Name:  "fixture",
				Usage: "JSON fixture file for the inmemory provider",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the check",
				Value: 30 * time.Second,
			},
		},
		Action: testConnectionAction,
	}
}

func testConnectionAction(c *cli.Context) error {
	store, err := config.Open(c.String("config"))
	if err != nil {
		return err
	}
	cfg := store.Snapshot()
	applyProviderFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	searcher, err := buildSearcher(c.Context, cfg, c.String("fixture"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	if err := engine.New(searcher).Ping(ctx); err != nil {
		fmt.Fprintln(c.App.Writer, ui.RenderError(err))
		return err
	}
	fmt.Fprintln(c.App.Writer, ui.RenderSuccess(cfg.Search.Provider+" connection OK"))
	return nil
}
