package gitlab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

var accessLevels = map[string]gitlab.AccessLevelValue{
	"guest":      gitlab.GuestPermissions,
	"reporter":   gitlab.ReporterPermissions,
	"developer":  gitlab.DeveloperPermissions,
	"maintainer": gitlab.MaintainerPermissions,
	"owner":      gitlab.OwnerPermissions,
}

// ParseAccessLevel accepts a role name (developer) or its numeric value (30).
func ParseAccessLevel(s string) (gitlab.AccessLevelValue, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return gitlab.DeveloperPermissions, nil
	}
	if level, ok := accessLevels[s]; ok {
		return level, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		for _, level := range accessLevels {
			if int(level) == n {
				return level, nil
			}
		}
	}

	names := make([]string, 0, len(accessLevels))
	for name := range accessLevels {
		names = append(names, name)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("unknown access level %q (want one of %s)", s, strings.Join(names, ", "))
}

// GetGroup resolves a group by ID or full path.
func (p *GitLabProvider) GetGroup(ctx context.Context, group string) (*Group, error) {
	g, resp, err := p.client.Groups.GetGroup(group, &gitlab.GetGroupOptions{
		WithProjects: gitlab.Ptr(false),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(resp, err, fmt.Sprintf("failed to get group '%s'", group))
	}
	return &Group{ID: g.ID, Name: g.Name, FullPath: g.FullPath}, nil
}

// IsGroupMember reports whether userID is a direct member of group.
func (p *GitLabProvider) IsGroupMember(ctx context.Context, group string, userID int) (bool, error) {
	_, resp, err := p.client.GroupMembers.GetGroupMember(group, userID, gitlab.WithContext(ctx))
	if err != nil {
		wrapped := wrapError(resp, err, fmt.Sprintf("failed to get member %d of group '%s'", userID, group))
		if errors.Is(wrapped, ErrNotFound) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// InviteToGroup sends a group invitation to an existing account.
func (p *GitLabProvider) InviteToGroup(ctx context.Context, group string, userID int, level gitlab.AccessLevelValue) error {
	result, resp, err := p.client.Invites.GroupInvites(group, &gitlab.InvitesOptions{
		ID:          strconv.Itoa(userID),
		AccessLevel: gitlab.Ptr(level),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return wrapError(resp, err, fmt.Sprintf("failed to invite user %d", userID))
	}

	// The invitations endpoint answers 201 with status "error" when a single
	// invitee is rejected (already invited, blocked account, ...).
	if result != nil && result.Status == "error" {
		return fmt.Errorf("failed to invite user %d: %s", userID, formatInviteMessage(result.Message))
	}
	return nil
}

func formatInviteMessage(msg map[string]string) string {
	if len(msg) == 0 {
		return "invitation rejected"
	}
	keys := make([]string, 0, len(msg))
	for k := range msg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, msg[k]))
	}
	return strings.Join(parts, "; ")
}
