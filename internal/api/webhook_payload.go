package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned for an empty body or an empty JSON object.
var ErrEmptyPayload = errors.New("no data")

// GitLabNoteWebhookPayload is the subset of a GitLab "Note Hook" body the bot
// reads. Absent fields decode to their zero values; IsIssueNote decides whether
// the event is actionable before anything reads them.
type GitLabNoteWebhookPayload struct {
	ObjectKind       string               `json:"object_kind"`
	EventType        string               `json:"event_type"`
	User             GitLabUser           `json:"user"`
	Project          GitLabProject        `json:"project"`
	ObjectAttributes GitLabNoteAttributes `json:"object_attributes"`
	Issue            GitLabIssue          `json:"issue"`

	hasIssue bool
}

// GitLabUser represents a GitLab user
type GitLabUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// GitLabProject represents a GitLab project
type GitLabProject struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
}

// GitLabNoteAttributes holds the note itself.
type GitLabNoteAttributes struct {
	ID           int    `json:"id"`
	Note         string `json:"note"`
	NoteableType string `json:"noteable_type"`
	AuthorID     int    `json:"author_id"`
	Action       string `json:"action"`
	URL          string `json:"url"`
	System       bool   `json:"system"`
}

// GitLabIssue is the issue a note was left on.
type GitLabIssue struct {
	ID          int    `json:"id"`
	IID         int    `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// ParseNoteWebhook decodes a webhook body. It fails with ErrEmptyPayload for
// an empty body or an empty JSON value ({}, [], null, "", 0, false), and with
// a decode error for anything else that is not a JSON object matching the
// schema.
func ParseNoteWebhook(body []byte) (*GitLabNoteWebhookPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if isEmptyJSON(value) {
		return nil, ErrEmptyPayload
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	var payload GitLabNoteWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	issue, ok := raw["issue"]
	payload.hasIssue = ok && !bytes.Equal(bytes.TrimSpace(issue), []byte("null"))
	return &payload, nil
}

func isEmptyJSON(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case string:
		return v == ""
	case float64:
		return v == 0
	case bool:
		return !v
	}
	return false
}

// HasIssue reports whether the body carried an issue object.
func (p *GitLabNoteWebhookPayload) HasIssue() bool {
	return p.hasIssue
}

// IsIssueNote is the shape gate: a note event attached to an issue.
func (p *GitLabNoteWebhookPayload) IsIssueNote() (bool, string) {
	if p.ObjectKind != "note" {
		return false, fmt.Sprintf("object_kind is %q, not note", p.ObjectKind)
	}
	if p.EventType != "note" {
		return false, fmt.Sprintf("event_type is %q, not note", p.EventType)
	}
	if !p.hasIssue {
		return false, "note is not attached to an issue"
	}
	return true, ""
}
