package services

import (
	"strings"
	"unicode/utf8"
)

// CleanReply removes the user's message when the model echoes it at the
// start of its output. The comparison ignores case and surrounding
// whitespace; the result is always whitespace-trimmed.
func CleanReply(message, raw string) string {
	out := strings.TrimSpace(raw)
	prefix := strings.TrimSpace(message)
	if prefix == "" {
		return out
	}
	if n, ok := foldPrefixLen(out, prefix); ok {
		return strings.TrimSpace(out[n:])
	}
	return out
}

// foldPrefixLen reports whether s starts with prefix under Unicode case
// folding, and the byte length of the matched part of s. Folded runes may
// differ in width, so the strings are walked rune by rune.
func foldPrefixLen(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && !strings.EqualFold(string(sr), string(pr)) {
			return 0, false
		}
		i += size
	}
	return i, true
}
