package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/internal/config"
	"github.com/ustc-compiler/gitlab-scripts/internal/logging"
	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

const configMetadataKey = "config"

// Setup loads .env files and the configuration, then configures logging.
// It is meant to run as the app's Before hook.
func Setup(c *cli.Context) error {
	if err := config.LoadDotEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("invalid log settings: %w", err)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configMetadataKey] = cfg
	return nil
}

// loadedConfig returns the configuration stored by Setup, loading it again
// if the hook did not run.
func loadedConfig(c *cli.Context) (*config.Config, error) {
	if cfg, ok := c.App.Metadata[configMetadataKey].(*config.Config); ok {
		return cfg, nil
	}
	return config.LoadConfig(c.String("config"))
}

func newGitLabProvider(cfg *config.Config) (*gitlab.GitLabProvider, error) {
	return gitlab.New(gitlab.GitLabConfig{
		URL:   cfg.GitLab.URL,
		Token: cfg.GitLab.Token,
	})
}
