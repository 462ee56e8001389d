package dedup

import (
	"fmt"

	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/fingerprint"
)

// DefaultThreshold is the cosine similarity at which two semantic
// fingerprints describe the same story.
const DefaultThreshold = 0.93

// Matcher decides whether two topic fingerprints are duplicates.
type Matcher interface {
	Match(a, b fingerprint.Fingerprint) bool
}

// SimilarityMatcher compares semantic fingerprints by cosine similarity and
// lexical fingerprints by exact key. Mixed kinds never match.
type SimilarityMatcher struct {
	Threshold float64
}

func NewSimilarityMatcher(threshold float64) SimilarityMatcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return SimilarityMatcher{Threshold: threshold}
}

func (m SimilarityMatcher) Match(a, b fingerprint.Fingerprint) bool {
	switch {
	case a.IsSemantic() && b.IsSemantic():
		return fingerprint.Cosine(a.Vector, b.Vector) >= m.Threshold
	case a.IsLexical() && b.IsLexical():
		return lexicalEqual(a, b)
	default:
		return false
	}
}

// LexicalMatcher only compares lexical keys; semantic fingerprints never
// match anything.
type LexicalMatcher struct{}

func (LexicalMatcher) Match(a, b fingerprint.Fingerprint) bool {
	return a.IsLexical() && b.IsLexical() && lexicalEqual(a, b)
}

// An empty key carries no topic, so it matches nothing.
func lexicalEqual(a, b fingerprint.Fingerprint) bool {
	return a.Key != "" && a.Key == b.Key
}

// MatcherFor selects the matcher for a configured dedup strategy.
func MatcherFor(strategy string, threshold float64) (Matcher, error) {
	switch strategy {
	case config.DedupSemantic, "":
		return NewSimilarityMatcher(threshold), nil
	case config.DedupLexical:
		return LexicalMatcher{}, nil
	default:
		return nil, fmt.Errorf("dedup: unknown strategy %q", strategy)
	}
}
