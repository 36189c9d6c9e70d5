package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/letmevibethatforyou/kwsearch/internal/logging"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if logging.OnAWS() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command tree writing user output to out.
func newApp(out io.Writer) *cli.App {
	var logCloser io.Closer

	return &cli.App{
		Name:      "kwsearch",
		Usage:     "Search a list of keywords and export the results",
		Version:   version,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path of the JSON configuration file",
				EnvVars: []string{"KWSEARCH_CONFIG"},
				Value:   config.DefaultPath(),
			},
		},
		Before: func(c *cli.Context) error {
			logger, closer, err := setupLogging(c.String("config"))
			if err != nil {
				return err
			}
			logCloser = closer
			slog.SetDefault(logger)
			logging.Banner(logger, "kwsearch", version)
			return nil
		},
		After: func(c *cli.Context) error {
			if logCloser == nil {
				return nil
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			return logCloser.Close()
		},
		Commands: []*cli.Command{
			searchCommand(),
			settingsCommand(),
			testConnectionCommand(),
		},
	}
}

// setupLogging reads the logging section without creating the config
// file, so that "settings init" still sees a missing file.
func setupLogging(path string) (*slog.Logger, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("using default logging settings", "error", err)
		cfg = config.Default()
	}
	return logging.New(logging.Options{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		ConsoleOutput: cfg.Logging.ConsoleOutput,
		JSON:          logging.OnAWS(),
	})
}
