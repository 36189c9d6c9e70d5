package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/letmevibethatforyou/kwsearch/internal/ui"
	"github.com/urfave/cli/v2"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change the persisted settings",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective settings",
				Action: settingsShowAction,
			},
			{
				Name:      "set-num",
				Usage:     "Set the number of results per keyword (1-10)",
				ArgsUsage: "N",
				Action:    settingsSetNumAction,
			},
			{
				Name:   "init",
				Usage:  "Write a sample configuration file",
				Action: settingsInitAction,
			},
		},
		Action: settingsShowAction,
	}
}

func settingsShowAction(c *cli.Context) error {
	store, err := config.Open(c.String("config"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ui.RenderSettings(store.Path(), store.Snapshot()))
	return nil
}

func settingsSetNumAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: kwsearch settings set-num N")
	}
	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%q is not a number", c.Args().First()), config.ErrInvalid)
	}

	store, err := config.Open(c.String("config"))
	if err != nil {
		return err
	}
	if err := store.SetSearchNum(n); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, ui.RenderSuccess(fmt.Sprintf("search.num = %d saved to %s", store.SearchNum(), store.Path())))
	return nil
}

func settingsInitAction(c *cli.Context) error {
	path := c.String("config")
	if err := config.WriteSample(path); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ui.RenderSuccess("wrote "+path+"; fill in google_api.api_key and google_api.custom_search_engine_id"))
	return nil
}
