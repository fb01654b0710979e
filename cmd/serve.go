package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/ustc-compiler/gitlab-scripts/internal/api"
	"github.com/ustc-compiler/gitlab-scripts/internal/config"
	"github.com/ustc-compiler/gitlab-scripts/internal/llm"
	"github.com/ustc-compiler/gitlab-scripts/internal/reply"
)

// ServeCommand returns the CLI command for starting the webhook bot
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the issue bot webhook server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address (default from config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if err := config.ValidateBot(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newGitLabProvider(cfg)
	if err != nil {
		return err
	}

	me, err := provider.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot account: %w", err)
	}
	fmt.Printf("I'm %s\n", me.Username)
	if me.Username != cfg.Bot.Username {
		log.Warn().
			Str("token_user", me.Username).
			Str("bot_username", cfg.Bot.Username).
			Msg("Token user differs from configured bot username")
	}

	responder, err := newResponder(ctx, cfg)
	if err != nil {
		return err
	}

	composer := reply.NewComposer(responder, provider, reply.Config{
		BotName:     cfg.Bot.Username,
		SearchLimit: cfg.Bot.SearchLimit,
	})
	dispatcher := api.NewDispatcher(composer, provider, api.DispatcherConfig{
		Bot:          api.BotUser{ID: me.ID, Username: cfg.Bot.Username},
		Project:      cfg.GitLab.Repository,
		ReplyTimeout: cfg.Bot.ReplyTimeout,
	})

	if cfg.Webhook.Secret == "" {
		log.Warn().Msg("No webhook secret configured")
	}

	server := api.NewServer(dispatcher, api.ServerConfig{
		Addr:          cfg.Server.Addr,
		WebhookSecret: cfg.Webhook.Secret,
	})
	return server.Start(ctx)
}

func newResponder(ctx context.Context, cfg *config.Config) (*llm.Responder, error) {
	provider, err := llm.ParseProvider(cfg.AI.Provider)
	if err != nil {
		return nil, err
	}

	model, err := llm.NewModel(ctx, llm.ConnectorOptions{
		Provider:    provider,
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", provider, err)
	}

	return llm.NewResponder(model, cfg.AI.Temperature), nil
}
