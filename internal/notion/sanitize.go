package notion

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeSelectLabel cleans a noisy human-readable string for use as a
// select option label: NFC-normalize, strip all Unicode punctuation,
// collapse whitespace runs to single spaces. Idempotent.
func SanitizeSelectLabel(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
