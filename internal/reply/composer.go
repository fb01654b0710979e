package reply

import (
	"context"
	"fmt"
	"time"

	"github.com/ustc-compiler/gitlab-scripts/internal/llm"
	"github.com/ustc-compiler/gitlab-scripts/internal/logging"
	"github.com/ustc-compiler/gitlab-scripts/internal/prompts"
	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

// Responder answers one system + user prompt pair.
type Responder interface {
	Respond(ctx context.Context, system, user string) (string, error)
}

// IssueAPI is the part of GitLab the composer needs.
type IssueAPI interface {
	SearchIssues(ctx context.Context, project, query string, limit int) ([]gitlab.IssueSearchResult, error)
	CreateIssueNote(ctx context.Context, project string, issueIID int, body string) (int, error)
}

// Stage names a step of reply composition.
type Stage string

const (
	StageAnswer   Stage = "answer"
	StageKeywords Stage = "keywords"
	StageSearch   Stage = "search"
	StagePost     Stage = "post"
)

// Config holds the composer configuration
type Config struct {
	BotName     string
	SearchLimit int
}

// Request carries the issue and the note that mentioned the bot.
type Request struct {
	Project     string
	IssueIID    int
	Title       string
	Description string
	Note        string
	Author      string
	NoteURL     string
}

// Result describes what a Compose call did. When Err is set, Stage is the
// step that failed; Posted tells whether the comment reached GitLab.
type Result struct {
	Posted   bool
	NoteID   int
	Stage    Stage
	Err      error
	Keywords []string
	Related  int
	Body     string
	Duration time.Duration
}

// Composer drafts and posts the bot's answer to a note.
type Composer struct {
	responder Responder
	issues    IssueAPI
	prompts   *prompts.PromptBuilder
	config    Config
}

// NewComposer creates a Composer.
func NewComposer(responder Responder, issues IssueAPI, config Config) *Composer {
	return &Composer{
		responder: responder,
		issues:    issues,
		prompts:   prompts.NewPromptBuilder(config.BotName),
		config:    config,
	}
}

// Compose runs the steps strictly in order: direct answer, keyword
// extraction, related-issue search, comment post. It stops at the first
// failure; nothing is posted unless every earlier step succeeded.
func (c *Composer) Compose(ctx context.Context, req Request) *Result {
	start := time.Now()
	logger := logging.FromContext(ctx)
	result := &Result{}

	fail := func(stage Stage, err error) *Result {
		result.Stage = stage
		result.Err = fmt.Errorf("%s: %w", stage, err)
		result.Duration = time.Since(start)
		return result
	}

	question := c.prompts.BuildQuestion(req.Title, req.Description, req.Note)

	system, user := c.prompts.BuildAnswerPrompt(question)
	answer, err := c.responder.Respond(ctx, system, user)
	if err != nil {
		return fail(StageAnswer, err)
	}
	logger.Debug().Int("answer_length", len(answer)).Msg("Direct answer ready")

	system, user = c.prompts.BuildKeywordPrompt(question)
	rawKeywords, err := c.responder.Respond(ctx, system, user)
	if err != nil {
		return fail(StageKeywords, err)
	}
	result.Keywords = llm.ParseKeywords(rawKeywords)
	logger.Debug().Strs("keywords", result.Keywords).Msg("Keywords extracted")

	related, err := c.issues.SearchIssues(ctx, req.Project, c.prompts.BuildSearchQuery(result.Keywords), c.config.SearchLimit)
	if err != nil {
		return fail(StageSearch, err)
	}
	result.Related = len(related)

	result.Body = c.prompts.BuildReply(prompts.Reply{
		Author:   req.Author,
		NoteURL:  req.NoteURL,
		Answer:   answer,
		Keywords: result.Keywords,
		Related:  related,
	})

	noteID, err := c.issues.CreateIssueNote(ctx, req.Project, req.IssueIID, result.Body)
	if err != nil {
		return fail(StagePost, err)
	}

	result.Posted = true
	result.NoteID = noteID
	result.Duration = time.Since(start)
	return result
}
