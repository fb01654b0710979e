package gitlab

import (
	"strings"
)

// MentionMarker returns the "@username" string that addresses the bot.
func MentionMarker(username string) string {
	return "@" + strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// DetectDirectMention returns true when the comment body contains the
// literal "@username" marker. Matching is case-sensitive.
func DetectDirectMention(commentBody, username string) bool {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return false
	}

	return strings.Contains(commentBody, MentionMarker(username))
}
