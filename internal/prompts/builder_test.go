package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

func TestBuildQuestion(t *testing.T) {
	pb := NewPromptBuilder("bot")

	assert.Equal(t, "问题标题: T, 问题描述: D, 其他信息: @bot help", pb.BuildQuestion("T", "D", "@bot help"))
	assert.Equal(t, "问题标题: title: empty, 问题描述: description: empty, 其他信息: x", pb.BuildQuestion("", " ", "x"))
}

func TestBuildPrompts_NameTheBot(t *testing.T) {
	pb := NewPromptBuilder("compilerh-course-bot")

	system, user := pb.BuildAnswerPrompt("Q")
	assert.Contains(t, system, "compilerh-course-bot")
	assert.True(t, strings.HasPrefix(user, "问题：Q\n"))

	system, user = pb.BuildKeywordPrompt("Q")
	assert.Contains(t, system, "提取关键词")
	assert.True(t, strings.HasSuffix(user, "用逗号分隔：Q"))
}

func TestBuildReply(t *testing.T) {
	pb := NewPromptBuilder("bot")

	reply := pb.BuildReply(Reply{
		Author:   "alice",
		NoteURL:  "https://gitlab.example.com/q/-/issues/42#note_1",
		Answer:   "Check your grammar.",
		Keywords: []string{"lexer", "parser"},
		Related: []gitlab.IssueSearchResult{
			{IID: 3, Title: "Parser bug", URL: "https://gitlab.example.com/q/-/issues/3"},
		},
	})

	assert.True(t, strings.HasPrefix(reply, ReplyGreeting+"alice。"))
	assert.Contains(t, reply, "([note](https://gitlab.example.com/q/-/issues/42#note_1))")
	assert.Contains(t, reply, "\n\nCheck your grammar.\n\n")
	assert.Contains(t, reply, "\n\nlexer, parser\n\n")
	assert.Contains(t, reply, "- [#3 Parser bug](https://gitlab.example.com/q/-/issues/3)")
	assert.NotContains(t, reply, NoRelatedIssues)
}

func TestBuildRelatedIssuesSection_Empty(t *testing.T) {
	assert.Equal(t, NoRelatedIssues, BuildRelatedIssuesSection(nil))
}

func TestBuildSearchQuery(t *testing.T) {
	assert.Equal(t, "A B C", NewPromptBuilder("bot").BuildSearchQuery([]string{"A", "B", "C"}))
}
