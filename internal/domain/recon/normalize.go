package recon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes accented letters and drops the combining marks, so
// "Müller" and "Muller" normalize to the same key.
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds free text into the canonical rule-lookup form: accents
// stripped, uppercased, punctuation replaced by spaces, whitespace collapsed.
// The result contains only letters, digits and single spaces, which makes
// the function idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// tokens splits a normalized string into its space-separated fields.
func tokens(normalized string) []string {
	return strings.Fields(normalized)
}
