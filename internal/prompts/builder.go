package prompts

import (
	"fmt"
	"strings"

	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

// PromptBuilder provides methods for building the bot's prompts and replies
type PromptBuilder struct {
	botName string
}

// NewPromptBuilder creates a new prompt builder instance
func NewPromptBuilder(botName string) *PromptBuilder {
	return &PromptBuilder{botName: botName}
}

// Reply holds everything rendered into a bot comment.
type Reply struct {
	Author   string
	NoteURL  string
	Answer   string
	Keywords []string
	Related  []gitlab.IssueSearchResult
}

// BuildQuestion merges the issue and the triggering note into the text both
// LLM calls work on. Missing parts get a visible placeholder.
func (pb *PromptBuilder) BuildQuestion(title, description, note string) string {
	return fmt.Sprintf(QuestionFormat,
		orDefault(title, EmptyTitle),
		orDefault(description, EmptyDescription),
		orDefault(note, EmptyNote))
}

// BuildAnswerPrompt returns the system and user messages for the direct answer.
func (pb *PromptBuilder) BuildAnswerPrompt(question string) (string, string) {
	return fmt.Sprintf(AnswerRole, pb.botName), fmt.Sprintf(AnswerInstructions, question)
}

// BuildKeywordPrompt returns the system and user messages for keyword extraction.
func (pb *PromptBuilder) BuildKeywordPrompt(question string) (string, string) {
	return fmt.Sprintf(KeywordRole, pb.botName), fmt.Sprintf(KeywordInstructions, question)
}

// BuildSearchQuery joins keywords the way the issue search expects them.
func (pb *PromptBuilder) BuildSearchQuery(keywords []string) string {
	return strings.Join(keywords, SearchTermSeparator)
}

// BuildReply renders the final comment.
func (pb *PromptBuilder) BuildReply(r Reply) string {
	return fmt.Sprintf(ReplyTemplate,
		r.Author,
		r.NoteURL,
		r.Answer,
		strings.Join(r.Keywords, KeywordSeparator),
		BuildRelatedIssuesSection(r.Related))
}

// BuildRelatedIssuesSection renders a bullet per issue, or the no-results
// sentence for an empty list.
func BuildRelatedIssuesSection(issues []gitlab.IssueSearchResult) string {
	if len(issues) == 0 {
		return NoRelatedIssues
	}
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		lines = append(lines, fmt.Sprintf(RelatedIssueFormat, issue.IID, issue.Title, issue.URL))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
