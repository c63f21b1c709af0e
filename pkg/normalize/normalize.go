// Package normalize canonicalizes free-text address parts so they can be
// compared against autocomplete echoes without regard to accents, case or
// spacing.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes, drops combining and spacing modifier marks (´ ¨ `)
// and recomposes what is left.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.Predicate(func(r rune) bool { return unicode.In(r, unicode.Mn, unicode.Sk) })), norm.NFC)

// Text strips diacritics, upper-cases, trims and collapses internal whitespace
// runs to a single space. It never fails and Text(Text(s)) == Text(s).
func Text(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		// transform only fails on invalid state; fall back to the raw input
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}

// Contains reports whether the trimmed, upper-cased haystack contains the
// upper-cased needle. Autocomplete widgets often echo a superset of what was
// typed, e.g. "SANTIAGO, REGION METROPOLITANA" for "SANTIAGO".
func Contains(haystack, needle string) bool {
	return strings.Contains(strings.ToUpper(strings.TrimSpace(haystack)), strings.ToUpper(needle))
}
