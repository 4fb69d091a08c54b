package app

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	markOpen  = "<mark>"
	markClose = "</mark>"
	ellipsis  = "..."
)

// keywordSnippet returns window runes either side of the first case-insensitive match of query
// in content, with the match wrapped in <mark>. ok is false when query does not occur.
func keywordSnippet(content, query string, window int) (string, bool) {
	start, end := indexFold(content, query)
	if start < 0 {
		return "", false
	}

	from := start
	for n := 0; n < window && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(content[:from])
		from -= size
	}
	to := end
	for n := 0; n < window && to < len(content); n++ {
		_, size := utf8.DecodeRuneInString(content[to:])
		to += size
	}

	var sb strings.Builder
	if from > 0 {
		sb.WriteString(ellipsis)
	}
	sb.WriteString(collapseSpace(content[from:start]))
	sb.WriteString(markOpen)
	sb.WriteString(content[start:end])
	sb.WriteString(markClose)
	sb.WriteString(collapseSpace(content[end:to]))
	if to < len(content) {
		sb.WriteString(ellipsis)
	}
	return sb.String(), true
}

// leadingSnippet returns the first limit runes of content.
func leadingSnippet(content string, limit int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= limit {
		return collapseSpace(content)
	}
	cut := 0
	for n := 0; n < limit; n++ {
		_, size := utf8.DecodeRuneInString(content[cut:])
		cut += size
	}
	return collapseSpace(content[:cut]) + ellipsis
}

// indexFold finds the byte range of the first case-insensitive occurrence of substr in s.
func indexFold(s, substr string) (int, int) {
	if substr == "" {
		return -1, -1
	}
	for i := 0; i < len(s); {
		if end, ok := hasPrefixFold(s[i:], substr); ok {
			return i, i + end
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// hasPrefixFold reports whether s starts with prefix under simple case folding and
// returns the byte length of the matched part of s.
func hasPrefixFold(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && unicode.ToLower(sr) != unicode.ToLower(pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}
