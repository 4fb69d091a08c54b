package app

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTagRunes     = 64
	maxSuggestedTag = 8
)

// normalizeTag lower-cases and trims tag, drops a leading '#' and caps its length.
// It returns "" for tags with nothing left.
func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#")
	tag = strings.ToLower(strings.Join(strings.Fields(tag), " "))
	if utf8.RuneCountInString(tag) > maxTagRunes {
		tag = string([]rune(tag)[:maxTagRunes])
		tag = strings.TrimSpace(tag)
	}
	return tag
}

// normalizeTags normalizes and de-duplicates tags, keeping at most limit of them in order.
func normalizeTags(tags []string, limit int) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, min(len(tags), limit))
	for _, t := range tags {
		if len(out) >= limit {
			break
		}
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
