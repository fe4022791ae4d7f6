package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Vector
		b    *Vector
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewVector("hello world")},
		{"b nil", NewVector("hello world"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestSimilarityIdenticalIgnoresCaseAndDiacritics(t *testing.T) {
	got := Similarity("Válka s Mloky", "valka S MLOKY")
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Similarity = %v, want 1.0", got)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	if got := Similarity("apple banana cherry", "dog elephant frog"); got != 0 {
		t.Errorf("Similarity(different) = %v, want 0", got)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	got := Similarity("The Hobbit", "The Hobbit or There and Back Again")
	if got <= 0.3 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0.3 and 1", got)
	}
}
