package search

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer prepares both indexed text and queries: case folding, accent
// stripping, whitespace collapsing and optional English stemming.
type Normalizer struct {
	Stem bool
}

// Normalize returns the canonical form of s
func (n Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded := fold(s)
	words := strings.Fields(folded)
	if n.Stem {
		for i, w := range words {
			words[i] = porter2.Stem(w)
		}
	}
	return strings.Join(words, " ")
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
