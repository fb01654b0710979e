package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/internal/config"
	"github.com/ustc-compiler/gitlab-scripts/internal/invite"
	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

// InviteCommand returns the CLI command for batch group invitations
func InviteCommand() *cli.Command {
	return &cli.Command{
		Name:  "invite",
		Usage: "Invite every user ID in a CSV file to a GitLab group",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "CSV `FILE` with a uid column (default from config)",
			},
			&cli.StringFlag{
				Name:    "group",
				Aliases: []string{"g"},
				Usage:   "Group ID or full path (default from config)",
			},
			&cli.StringFlag{
				Name:  "access-level",
				Usage: "Role to grant: guest, reporter, developer, maintainer, owner or a number",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Check membership without sending invitations",
			},
		},
		Action: runInvite,
	}
}

func runInvite(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("file"); v != "" {
		cfg.Invite.File = v
	}
	if v := c.String("group"); v != "" {
		cfg.GitLab.Group = v
	}
	if v := c.String("access-level"); v != "" {
		cfg.Invite.AccessLevel = v
	}

	if err := config.ValidateInvite(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := gitlab.ParseAccessLevel(cfg.Invite.AccessLevel)
	if err != nil {
		return err
	}

	ids, err := invite.ReadUIDsFile(cfg.Invite.File)
	if err != nil {
		return err
	}

	provider, err := newGitLabProvider(cfg)
	if err != nil {
		return err
	}

	report, err := invite.NewInviter(provider).Run(c.Context, cfg.GitLab.Group, ids, invite.Options{
		AccessLevel: level,
		DryRun:      c.Bool("dry-run"),
		Out:         os.Stdout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nDone: %d invited, %d already members, %d failed",
		report.Count(invite.StatusInvited),
		report.Count(invite.StatusAlreadyMember),
		report.Count(invite.StatusFailed),
	)
	if n := report.Count(invite.StatusWouldInvite); n > 0 {
		fmt.Printf(", %d would be invited", n)
	}
	fmt.Println()
	return nil
}
