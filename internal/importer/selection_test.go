package importer

import (
	"slices"
	"testing"

	"audiomason/internal/pipeline"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		n       int
		want    []int
		wantErr bool
	}{
		{name: "single", answer: "2", n: 3, want: []int{1}},
		{name: "all", answer: "a", n: 3, want: []int{0, 1, 2}},
		{name: "all word", answer: " ALL ", n: 2, want: []int{0, 1}},
		{name: "list keeps answer order", answer: "3, 1", n: 3, want: []int{2, 0}},
		{name: "duplicates collapse", answer: "1,1,2", n: 2, want: []int{0, 1}},
		{name: "out of range", answer: "4", n: 3, wantErr: true},
		{name: "zero", answer: "0", n: 3, wantErr: true},
		{name: "garbage", answer: "x", n: 3, wantErr: true},
		{name: "empty", answer: "", n: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.answer, tt.n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSelection: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatSelectionRoundTrip(t *testing.T) {
	if got := formatSelection([]int{0, 1, 2}, 3); got != selectAll {
		t.Fatalf("full selection = %q, want %q", got, selectAll)
	}
	if got := formatSelection([]int{0}, 1); got != "1" {
		t.Fatalf("single book selection = %q, want 1", got)
	}
	idx, err := parseSelection(formatSelection([]int{2, 0}, 4), 4)
	if err != nil || !slices.Equal(idx, []int{2, 0}) {
		t.Fatalf("round trip = %v, %v", idx, err)
	}
}

func TestOverrideSelection(t *testing.T) {
	labels := []string{"A", "B", "C"}
	if got, err := overrideSelection(labels, []string{"all"}); err != nil || got != selectAll {
		t.Fatalf("all = %q, %v", got, err)
	}
	if got, err := overrideSelection(labels, []string{"C", "A"}); err != nil || got != "3,1" {
		t.Fatalf("labels = %q, %v", got, err)
	}
	if _, err := overrideSelection(labels, []string{"D"}); err == nil {
		t.Fatal("expected unknown label error")
	}
}

func TestPipelineString(t *testing.T) {
	got := pipelineString(pipeline.Plan{pipeline.Rename, pipeline.Tags})
	if got != "rename -> tags" {
		t.Fatalf("pipelineString = %q", got)
	}
}
