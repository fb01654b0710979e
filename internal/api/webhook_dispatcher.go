package api

import (
	"context"
	"strconv"
	"time"

	"github.com/ustc-compiler/gitlab-scripts/internal/logging"
	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
	"github.com/ustc-compiler/gitlab-scripts/internal/reply"
)

// ReplyComposer drafts and posts a reply for a qualifying note.
type ReplyComposer interface {
	Compose(ctx context.Context, req reply.Request) *reply.Result
}

// UserLookup resolves note authors to usernames.
type UserLookup interface {
	GetUser(ctx context.Context, id int) (*gitlab.User, error)
}

// BotUser identifies the account the bot posts as.
type BotUser struct {
	ID       int
	Username string
}

// OutcomeStatus summarises how an event was handled.
type OutcomeStatus string

const (
	OutcomeIgnored OutcomeStatus = "ignored"
	OutcomeReplied OutcomeStatus = "replied"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is the result of dispatching one webhook event. A failed outcome
// with Posted == false and Stage == reply.StagePost is a lost reply: the
// answer was generated but never reached GitLab.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Stage  reply.Stage
	Posted bool
	NoteID int
	Err    error
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Bot BotUser
	// Project is used when the payload carries no project ID.
	Project string
	// ReplyTimeout bounds one reply; zero means no limit.
	ReplyTimeout time.Duration
}

// Dispatcher applies the shape and relevance gates to note events and hands
// qualifying ones to the composer.
type Dispatcher struct {
	composer ReplyComposer
	users    UserLookup
	config   DispatcherConfig
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(composer ReplyComposer, users UserLookup, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		composer: composer,
		users:    users,
		config:   config,
	}
}

func ignored(reason string) Outcome {
	return Outcome{Status: OutcomeIgnored, Reason: reason}
}

// Dispatch handles one parsed event.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *GitLabNoteWebhookPayload) Outcome {
	logger := logging.FromContext(ctx)

	if ok, reason := payload.IsIssueNote(); !ok {
		logger.Debug().Str("reason", reason).Msg("Ignoring webhook")
		return ignored(reason)
	}

	attrs := payload.ObjectAttributes
	noteLog := logger.With().
		Str("note_url", attrs.URL).
		Int("issue_iid", payload.Issue.IID).
		Int("author_id", attrs.AuthorID).
		Logger()

	if attrs.Action != "create" && attrs.Action != "update" {
		noteLog.Info().Str("action", attrs.Action).Msg("Note is not create or update")
		return ignored("note action is not create or update")
	}

	// Loop prevention: never answer our own comments, mention or not.
	if attrs.AuthorID == d.config.Bot.ID {
		noteLog.Info().Msg("Note author is the bot")
		return ignored("note author is the bot")
	}

	if !gitlab.DetectDirectMention(attrs.Note, d.config.Bot.Username) {
		noteLog.Info().Str("mention", gitlab.MentionMarker(d.config.Bot.Username)).Msg("Note does not mention the bot")
		return ignored("bot not mentioned")
	}

	author := d.authorName(ctx, payload)
	project := d.config.Project
	if payload.Project.ID != 0 {
		project = strconv.Itoa(payload.Project.ID)
	}

	noteLog.Info().Str("author", author).Str("project", project).Msg("Handling note")

	if d.config.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ReplyTimeout)
		defer cancel()
	}

	result := d.composer.Compose(ctx, reply.Request{
		Project:     project,
		IssueIID:    payload.Issue.IID,
		Title:       payload.Issue.Title,
		Description: payload.Issue.Description,
		Note:        attrs.Note,
		Author:      author,
		NoteURL:     attrs.URL,
	})

	if result.Err != nil {
		event := noteLog.Error().Err(result.Err).Str("stage", string(result.Stage))
		if result.Stage == reply.StagePost {
			event = event.Bool("reply_lost", true).Int("body_length", len(result.Body))
		}
		event.Msg("Reply failed")
		return Outcome{
			Status: OutcomeFailed,
			Reason: "reply failed",
			Stage:  result.Stage,
			Posted: result.Posted,
			Err:    result.Err,
		}
	}

	noteLog.Info().
		Int("note_id", result.NoteID).
		Strs("keywords", result.Keywords).
		Int("related_issues", result.Related).
		Dur("duration", result.Duration).
		Msg("Reply posted")

	return Outcome{Status: OutcomeReplied, Posted: true, NoteID: result.NoteID}
}

// authorName looks the author up by ID and falls back to the username in
// the payload when the lookup fails.
func (d *Dispatcher) authorName(ctx context.Context, payload *GitLabNoteWebhookPayload) string {
	u, err := d.users.GetUser(ctx, payload.ObjectAttributes.AuthorID)
	if err == nil && u.Username != "" {
		return u.Username
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to look up note author, using payload user")
	}
	return payload.User.Username
}
