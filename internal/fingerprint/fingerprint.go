// Package fingerprint derives topic fingerprints for feed entries.
//
// A fingerprint is either semantic (an embedding vector) or lexical (a
// normalized prefix of the title). The two kinds are never compared with
// each other.
package fingerprint

import (
	"math"
	"strings"
	"unicode"
)

type Kind int

const (
	KindLexical Kind = iota + 1
	KindSemantic
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

type Fingerprint struct {
	Kind   Kind
	Vector []float32
	Key    string
}

func (f Fingerprint) IsSemantic() bool { return f.Kind == KindSemantic }

func (f Fingerprint) IsLexical() bool { return f.Kind == KindLexical }

// Semantic wraps an embedding vector.
func Semantic(vec []float32) Fingerprint {
	return Fingerprint{Kind: KindSemantic, Vector: vec}
}

// Lexical builds a key from the title: lower-cased, punctuation stripped,
// first words joined by single spaces.
func Lexical(title string, words int) Fingerprint {
	return Fingerprint{Kind: KindLexical, Key: LexicalKey(title, words)}
}

func LexicalKey(title string, words int) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}

	fields := strings.Fields(b.String())
	if words > 0 && len(fields) > words {
		fields = fields[:words]
	}
	return strings.Join(fields, " ")
}

// Cosine returns the cosine similarity of a and b, or 0 when the vectors
// differ in length or either has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
