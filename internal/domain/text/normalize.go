// Package text canonicalizes query and catalog text so that cache keys and
// embedding inputs agree between corpus loading and live queries.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims, lowercases, collapses every whitespace run (newlines and tabs
// included) to a single space, and strips control characters. Compatibility
// forms are folded first (NFKC) so visually identical input maps to one key.
// Never fails; the result may be empty.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			// control characters and invalid UTF-8 never reach the output
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Tokens splits normalized text into whitespace-separated words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// IsNormalized reports whether s is already in canonical form.
func IsNormalized(s string) bool {
	return Normalize(s) == s
}
