package labdirectory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after canonical decomposition, so
// accented characters compare equal to their base form.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and removes diacritics. Matching throughout the
// directory is case-insensitive and accent-insensitive.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform only fails on invalid UTF-8; fall back to the raw
		// string so matching degrades instead of erroring.
		folded = s
	}
	return strings.ToLower(folded)
}

// foldKey folds s and collapses interior whitespace to single spaces,
// producing the canonical lookup key form.
func foldKey(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}
