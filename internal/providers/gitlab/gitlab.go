package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// ErrNotFound is returned when GitLab answers 404 for a lookup.
var ErrNotFound = errors.New("not found")

// GitLabProvider talks to a single GitLab instance on behalf of one token.
type GitLabProvider struct {
	client *gitlab.Client
	config GitLabConfig
}

// GitLabConfig contains configuration for the GitLab provider
type GitLabConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client `koanf:"-"`
}

// User is the subset of a GitLab account the tools care about.
type User struct {
	ID       int
	Username string
	Name     string
}

// Group is the subset of a GitLab group the tools care about.
type Group struct {
	ID       int
	Name     string
	FullPath string
}

// New creates a new GitLabProvider
func New(config GitLabConfig) (*GitLabProvider, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}

	opts := []gitlab.ClientOptionFunc{
		// Every call is made once; callers decide what a failure means.
		gitlab.WithoutRetries(),
	}
	if config.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(fmt.Sprintf("%s/api/v4", strings.TrimRight(config.URL, "/"))))
	}
	if config.HTTPClient != nil {
		opts = append(opts, gitlab.WithHTTPClient(config.HTTPClient))
	}

	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	log.Debug().Str("url", config.URL).Msg("Initialized GitLab client")

	return &GitLabProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the name of the provider
func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// CurrentUser returns the account that owns the configured token.
func (p *GitLabProvider) CurrentUser(ctx context.Context) (*User, error) {
	u, resp, err := p.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(resp, err, "failed to get current user")
	}
	return &User{ID: u.ID, Username: u.Username, Name: u.Name}, nil
}

// GetUser looks up an account by numeric ID.
func (p *GitLabProvider) GetUser(ctx context.Context, id int) (*User, error) {
	u, resp, err := p.client.Users.GetUser(id, gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(resp, err, fmt.Sprintf("failed to get user %d", id))
	}
	return &User{ID: u.ID, Username: u.Username, Name: u.Name}, nil
}

// wrapError attaches ErrNotFound to 404 responses so callers can use errors.Is.
func wrapError(resp *gitlab.Response, err error, msg string) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %v", msg, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
