package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// keywordSeparators covers the full-width comma models produce for Chinese
// prompts; the ASCII comma is the split point.
var keywordSeparators = []string{"，"}

// ParseKeywords splits a model reply into keywords: split on commas, trim
// whitespace, drop empty tokens, keep order. The count is not capped.
//
// Some models answer with a JSON array even when asked for a comma list; such
// replies are repaired and decoded instead.
func ParseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		if keywords, err := parseJSONKeywords(raw); err == nil {
			return keywords
		}
	}

	for _, sep := range keywordSeparators {
		raw = strings.ReplaceAll(raw, sep, ",")
	}

	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func parseJSONKeywords(raw string) ([]string, error) {
	var items []interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("keyword array repair failed: %w", repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &items); err != nil {
			return nil, fmt.Errorf("keyword array still invalid after repair: %w", err)
		}
	}

	var keywords []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("keyword array holds %T, want string", item)
		}
		if s = strings.TrimSpace(s); s != "" {
			keywords = append(keywords, s)
		}
	}
	return keywords, nil
}
