package preflight

import (
	"slices"
	"strings"
	"testing"
)

func TestDefaultOrderMatchesKeys(t *testing.T) {
	want := []string{
		"reuse_stage", "use_manifest_answers", "choose_source", "choose_books",
		"skip_processed_books", "publish", "wipe_id3", "clean_stage",
		"source_author", "book_title", "cover", "overwrite_destination",
	}
	if got := DefaultOrder().Keys(); !slices.Equal(got, want) {
		t.Fatalf("default order = %v", got)
	}
	for _, key := range want {
		step, err := ParseStep(key)
		if err != nil {
			t.Fatalf("ParseStep(%q): %v", key, err)
		}
		if step.String() != key {
			t.Fatalf("round trip %q -> %q", key, step.String())
		}
	}
}

func TestNonMovableSteps(t *testing.T) {
	for _, s := range Steps() {
		want := s != ChooseSource && s != ChooseBooks
		if s.Movable() != want {
			t.Errorf("%s movable = %v", s, s.Movable())
		}
	}
}

func TestParseOrderEmptyIsDefault(t *testing.T) {
	order, err := ParseOrder(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(order, DefaultOrder()) {
		t.Fatalf("order = %v", order.Keys())
	}
}

func TestParseOrderAcceptsMovedSteps(t *testing.T) {
	keys := []string{
		"choose_source", "reuse_stage", "use_manifest_answers", "choose_books",
		" clean_stage ", "", "wipe_id3", "publish", "skip_processed_books",
		"source_author", "book_title", "cover", "overwrite_destination",
	}
	order, err := ParseOrder(keys)
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	if order[4] != CleanStage || len(order) != int(stepCount) {
		t.Fatalf("order = %v", order.Keys())
	}
}

func TestParseOrderRejects(t *testing.T) {
	swap := func(a, b string) []string {
		keys := DefaultOrder().Keys()
		i, j := slices.Index(keys, a), slices.Index(keys, b)
		keys[i], keys[j] = keys[j], keys[i]
		return keys
	}
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"unknown", append(DefaultOrder().Keys(), "bogus"), "unknown preflight step key: bogus"},
		{"duplicate", append(DefaultOrder().Keys(), "cover"), "duplicate preflight step key: cover"},
		{"missing", DefaultOrder().Keys()[:10], "missing required preflight step key(s): cover, overwrite_destination"},
		{"title before author", swap("source_author", "book_title"), "order requires source_author before book_title"},
		{"cover after overwrite", swap("cover", "overwrite_destination"), "order requires cover before overwrite_destination"},
		{"books before reuse", swap("reuse_stage", "choose_books"), "order requires reuse_stage before"},
		{"books before source", swap("choose_source", "choose_books"), "order requires choose_source before choose_books"},
		{"skip before books", swap("choose_books", "skip_processed_books"), "order requires choose_books before skip_processed_books"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOrder(tc.keys)
			if err == nil {
				t.Fatalf("expected error for %v", tc.keys)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %q, want substring %q", err, tc.want)
			}
		})
	}
}
