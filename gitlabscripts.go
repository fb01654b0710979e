package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "gitlab-scripts",
		Usage:   "Course helpers for GitLab: batch group invites and an issue answering bot",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "gitlab-scripts.toml",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` before reading config",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Before: cmd.Setup,
		Commands: []*cli.Command{
			cmd.InviteCommand(),
			cmd.ServeCommand(),
			cmd.WhoamiCommand(),
			cmd.ConfigCommand(),
			cmd.EnvCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
