package gitlab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// maxPerPage is the largest page GitLab serves.
const maxPerPage = 100

// IssueSearchResult is a related issue as shown in a bot reply.
type IssueSearchResult struct {
	IID   int
	Title string
	URL   string
}

// SearchIssues runs a project-scoped issue search and returns at most limit
// results. A limit of zero or less reads every page.
func (p *GitLabProvider) SearchIssues(ctx context.Context, project, query string, limit int) ([]IssueSearchResult, error) {
	perPage := maxPerPage
	if limit > 0 && limit < perPage {
		perPage = limit
	}

	opt := &gitlab.SearchOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: perPage},
	}

	var results []IssueSearchResult
	for {
		issues, resp, err := p.client.Search.IssuesByProject(project, query, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrapError(resp, err, fmt.Sprintf("failed to search issues in project %s", project))
		}

		for _, issue := range issues {
			results = append(results, IssueSearchResult{
				IID:   issue.IID,
				Title: issue.Title,
				URL:   issue.WebURL,
			})
			if limit > 0 && len(results) >= limit {
				return results, nil
			}
		}

		if resp == nil || resp.NextPage == 0 || len(issues) == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	log.Debug().
		Str("project", project).
		Str("query", query).
		Int("results", len(results)).
		Msg("Issue search finished")

	return results, nil
}
