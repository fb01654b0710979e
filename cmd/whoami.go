package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/internal/config"
)

// WhoamiCommand returns the command that prints the token's account
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Print the GitLab account the configured token belongs to",
		Action: func(c *cli.Context) error {
			cfg, err := loadedConfig(c)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.GitLab.Token == "" {
				return config.ErrMissingToken
			}

			provider, err := newGitLabProvider(cfg)
			if err != nil {
				return err
			}

			me, err := provider.CurrentUser(c.Context)
			if err != nil {
				return err
			}

			fmt.Printf("I'm %s (id %d) on %s\n", me.Username, me.ID, cfg.GitLab.URL)
			return nil
		},
	}
}
