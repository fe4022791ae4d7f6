package textutil

import (
	"math"
	"regexp"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Vector is a term-frequency vector used to compare titles and author names.
type Vector struct {
	tokens map[string]float64
	norm   float64
}

// NewVector builds a vector from text. Returns nil if the text produces no tokens.
func NewVector(text string) *Vector {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return &Vector{tokens: counts, norm: math.Sqrt(sum)}
}

// Tokenize folds text to lowercase ASCII and splits it on non-alphanumerics.
// Single-character tokens are dropped.
func Tokenize(text string) []string {
	lowered := strings.ToLower(StripDiacritics(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 2 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if either vector is nil or has zero norm.
func CosineSimilarity(a, b *Vector) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// Similarity compares two strings directly.
func Similarity(a, b string) float64 {
	return CosineSimilarity(NewVector(a), NewVector(b))
}
