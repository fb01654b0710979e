package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "gitlab-scripts.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:  "validate",
				Usage: "Validate the configuration for the invite and serve commands",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "for",
						Usage: "Command to validate for: invite, serve or all",
						Value: "all",
					},
				},
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return validateFor(cfg, c.String("for"), os.Stdout)
}

// validateFor checks the configuration for one command or for all of them.
// Any failing check is an error.
func validateFor(cfg *config.Config, target string, out io.Writer) error {
	checks := []struct {
		name     string
		validate func(*config.Config) error
	}{
		{"invite", config.ValidateInvite},
		{"serve", config.ValidateBot},
	}

	var failed []string
	matched := false
	for _, check := range checks {
		if target != "all" && target != check.name {
			continue
		}
		matched = true
		if err := check.validate(cfg); err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", check.name, err)
			failed = append(failed, check.name)
			continue
		}
		fmt.Fprintf(out, "✓ %s: ok\n", check.name)
	}

	if !matched {
		return fmt.Errorf("unknown command %q (want invite, serve or all)", target)
	}
	if len(failed) > 0 {
		return fmt.Errorf("invalid configuration for %s", strings.Join(failed, ", "))
	}
	return nil
}
