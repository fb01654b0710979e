package gitlab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// CreateIssueNote posts a new top-level comment on an issue and returns the
// note ID.
func (p *GitLabProvider) CreateIssueNote(ctx context.Context, project string, issueIID int, body string) (int, error) {
	if body == "" {
		return 0, fmt.Errorf("comment body cannot be empty")
	}

	log.Debug().
		Str("project", project).
		Int("issue_iid", issueIID).
		Int("body_length", len(body)).
		Msg("Posting issue note")

	note, resp, err := p.client.Notes.CreateIssueNote(project, issueIID, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, wrapError(resp, err, fmt.Sprintf("failed to comment on issue #%d", issueIID))
	}
	return note.ID, nil
}
