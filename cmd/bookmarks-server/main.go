package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bookmarks-server",
		Usage: "Bookmark manager API with short links and visit statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "optional YAML config file",
				EnvVars: []string{"BOOKMARKS_CONFIG_FILE"},
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("config"); path != "" {
				return os.Setenv("BOOKMARKS_CONFIG_FILE", path)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serveCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations and exit",
				Action: migrateCommand,
			},
			{
				Name:   "visits-worker",
				Usage:  "Consume visit events from RabbitMQ and store them in batches",
				Action: visitsWorkerCommand,
			},
			{
				Name:  "import",
				Usage: "Import bookmarks from a JSON file for an existing user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "owner e-mail", Required: true},
					&cli.StringFlag{Name: "file", Usage: "JSON document ({\"bookmarks\": [...]} or Pinboard export)", Required: true},
				},
				Action: importCommand,
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
