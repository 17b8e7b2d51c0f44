// Package search indexes records by weighted text fields, scores them with a
// pluggable fuzzy matcher and merges independently scored result sets.
//
// Scores follow one convention throughout: lower is better.
package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/sahilm/fuzzy"
)

// Matcher scores text against a query. ok is false when the text does not
// match at all. Both inputs are already normalized.
type Matcher interface {
	Score(query, text string) (score float64, ok bool)
}

// MatcherFunc adapts a function to Matcher
type MatcherFunc func(query, text string) (float64, bool)

// Score implements Matcher
func (f MatcherFunc) Score(query, text string) (float64, bool) { return f(query, text) }

// Matcher names accepted by NewMatcher
const (
	MatcherSubsequence = "subsequence"
	MatcherJaroWinkler = "jaro-winkler"
	MatcherLevenshtein = "levenshtein"
)

// DefaultSimilarityThreshold is the minimum similarity accepted by SimilarityMatcher
const DefaultSimilarityThreshold = 0.7

// NewMatcher builds a matcher by name. threshold only applies to the
// similarity matchers; zero selects the default.
func NewMatcher(name string, threshold float64) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatcherSubsequence, "fuzzy":
		return SubsequenceMatcher{}, nil
	case MatcherJaroWinkler:
		return NewSimilarityMatcher(edlib.JaroWinkler, threshold), nil
	case MatcherLevenshtein:
		return NewSimilarityMatcher(edlib.Levenshtein, threshold), nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}

// SubsequenceMatcher matches when every query rune appears in order in the
// text. Runes that start a word (after a separator or a camelCase hump) rank
// highest, then contiguous runs; scattered matches rank last.
type SubsequenceMatcher struct{}

// Score implements Matcher
func (SubsequenceMatcher) Score(query, text string) (float64, bool) {
	matches := fuzzy.Find(query, []string{text})
	if len(matches) == 0 {
		return 0, false
	}
	return rankToScore(matches[0].Score), true
}

// ScoreAll scores many texts in one pass. The result is indexed like texts;
// math.Inf(1) marks a miss.
func (SubsequenceMatcher) ScoreAll(query string, texts []string) []float64 {
	out := make([]float64, len(texts))
	for i := range out {
		out[i] = math.Inf(1)
	}
	for _, m := range fuzzy.Find(query, texts) {
		out[m.Index] = rankToScore(m.Score)
	}
	return out
}

// rankToScore maps the library's higher-is-better rank onto (0, 1) with
// lower being better.
func rankToScore(rank int) float64 {
	return 1 / (1 + math.Exp(float64(rank)/8))
}

// SimilarityMatcher accepts texts whose similarity to the query, or to one of
// their words, reaches Threshold. The score is the distance 1 - similarity.
type SimilarityMatcher struct {
	Algorithm edlib.Algorithm
	Threshold float64
}

// NewSimilarityMatcher creates a similarity matcher for algo
func NewSimilarityMatcher(algo edlib.Algorithm, threshold float64) SimilarityMatcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return SimilarityMatcher{Algorithm: algo, Threshold: threshold}
}

// Score implements Matcher
func (m SimilarityMatcher) Score(query, text string) (float64, bool) {
	if query == "" || text == "" {
		return 0, false
	}
	best := m.similarity(query, text)
	if best < 1 {
		for _, word := range strings.Fields(text) {
			if s := m.similarity(query, word); s > best {
				best = s
			}
		}
	}
	if best < m.Threshold {
		return 0, false
	}
	return 1 - best, true
}

func (m SimilarityMatcher) similarity(a, b string) float64 {
	s, err := edlib.StringsSimilarity(a, b, m.Algorithm)
	if err != nil {
		return 0
	}
	return float64(s)
}
