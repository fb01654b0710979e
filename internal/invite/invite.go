package invite

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	gl "github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
)

// ErrGroupLookup marks a failure to resolve the target group. It aborts the
// run before any invitation is sent.
var ErrGroupLookup = errors.New("group lookup failed")

// GroupAPI is the part of GitLab the inviter needs.
type GroupAPI interface {
	GetGroup(ctx context.Context, group string) (*gl.Group, error)
	IsGroupMember(ctx context.Context, group string, userID int) (bool, error)
	InviteToGroup(ctx context.Context, group string, userID int, level gitlab.AccessLevelValue) error
}

// Status is the result for one user.
type Status string

const (
	StatusAlreadyMember Status = "already-member"
	StatusInvited       Status = "invited"
	StatusWouldInvite   Status = "would-invite"
	StatusFailed        Status = "failed"
)

// Outcome records what happened to one user ID.
type Outcome struct {
	UserID int
	Status Status
	Err    error
}

// Report lists outcomes in input order.
type Report struct {
	Group    string
	Outcomes []Outcome
}

// Count returns how many outcomes have the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Options controls a run.
type Options struct {
	AccessLevel gitlab.AccessLevelValue
	DryRun      bool
	// Out receives one human-readable status line per user. Nil discards.
	Out io.Writer
}

// Inviter invites users to a group, skipping existing members.
type Inviter struct {
	api GroupAPI
}

// NewInviter creates an Inviter backed by api.
func NewInviter(api GroupAPI) *Inviter {
	return &Inviter{api: api}
}

// Run checks each user ID against the group and invites non-members. A
// group lookup failure is returned wrapped in ErrGroupLookup and nothing is
// sent; per-user failures are recorded in the report and the loop goes on.
func (i *Inviter) Run(ctx context.Context, group string, userIDs []int, opts Options) (*Report, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	level := opts.AccessLevel
	if level == 0 {
		level = gitlab.DeveloperPermissions
	}

	if _, err := i.api.GetGroup(ctx, group); err != nil {
		fmt.Fprintf(out, "❌ Failed to get group '%s': %v\n", group, err)
		return nil, fmt.Errorf("%w: %w", ErrGroupLookup, err)
	}

	report := &Report{Group: group}
	for _, uid := range userIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := i.inviteOne(ctx, group, uid, level, opts.DryRun, out)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	log.Info().
		Str("group", group).
		Int("invited", report.Count(StatusInvited)).
		Int("already_member", report.Count(StatusAlreadyMember)).
		Int("failed", report.Count(StatusFailed)).
		Bool("dry_run", opts.DryRun).
		Msg("Invite run finished")

	return report, nil
}

func (i *Inviter) inviteOne(ctx context.Context, group string, uid int, level gitlab.AccessLevelValue, dryRun bool, out io.Writer) Outcome {
	member, err := i.api.IsGroupMember(ctx, group, uid)
	if err != nil {
		fmt.Fprintf(out, "❌ Failed to invite user %d: %v\n", uid, err)
		return Outcome{UserID: uid, Status: StatusFailed, Err: err}
	}
	if member {
		fmt.Fprintf(out, "ℹ️ User %d is already a member of '%s'\n", uid, group)
		return Outcome{UserID: uid, Status: StatusAlreadyMember}
	}

	if dryRun {
		fmt.Fprintf(out, "➡️ Would invite user %d to group '%s'\n", uid, group)
		return Outcome{UserID: uid, Status: StatusWouldInvite}
	}

	if err := i.api.InviteToGroup(ctx, group, uid, level); err != nil {
		fmt.Fprintf(out, "❌ Failed to invite user %d: %v\n", uid, err)
		return Outcome{UserID: uid, Status: StatusFailed, Err: err}
	}

	fmt.Fprintf(out, "✅ Invitation sent to user %d for group '%s'\n", uid, group)
	return Outcome{UserID: uid, Status: StatusInvited}
}
