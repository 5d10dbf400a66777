package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/youth-scoreboard/internal/config"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "scoreboard",
		Usage:   "Live youth-soccer match tracker",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.yaml",
				EnvVars: []string{"SCOREBOARD_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP and WebSocket server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema and exit",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "Provision teams, players, coaches and referees from a roster file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Roster YAML file",
						Required: true,
					},
				},
				Action: seed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger
func setup(c *cli.Context) (*config.Config, *slog.Logger) {
	cfg, loadErr := config.Load(c.String("config"))
	if loadErr != nil {
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if loadErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", loadErr)
	}
	return cfg, logger
}
