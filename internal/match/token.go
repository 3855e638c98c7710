package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics so "café" and "cafe" tokenize the
// same way.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tokenize lower-cases q, folds diacritics, strips punctuation and
// splits on whitespace. It is deterministic for a given input.
func Tokenize(q string) []string {
	folded, _, err := transform.String(foldTransformer, q)
	if err != nil {
		folded = q
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// tokenSet returns the unique tokens of q, preserving first-seen order.
func tokenSet(q string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range Tokenize(q) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// stem applies a minimal plural fold: a trailing "s" is dropped when
// the remaining stem keeps at least three runes ("tables" → "table",
// but "is" stays).
func stem(tok string) string {
	if strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && len(tok) > 3 {
		return tok[:len(tok)-1]
	}
	return tok
}
