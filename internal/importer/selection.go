package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"audiomason/internal/pipeline"
)

// selectAll picks every listed item.
const selectAll = "a"

// parseSelection reads "a", a 1-based number, or a comma list of numbers
// and returns zero-based indexes in answer order without duplicates.
func parseSelection(answer string, n int) ([]int, error) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == selectAll || answer == "all" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if answer == "" {
		return nil, fmt.Errorf("empty selection")
	}
	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(answer, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", part)
		}
		if v < 1 || v > n {
			return nil, fmt.Errorf("%d is out of range 1..%d", v, n)
		}
		if !seen[v-1] {
			seen[v-1] = true
			out = append(out, v-1)
		}
	}
	return out, nil
}

// formatSelection is the inverse of parseSelection.
func formatSelection(idx []int, n int) string {
	if len(idx) == n && n > 1 {
		return selectAll
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v + 1)
	}
	return strings.Join(parts, ",")
}

func selectionQuestion(heading string, names []string, noun string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", heading)
	for i, name := range names {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, name)
	}
	fmt.Fprintf(&b, "Choose %s number, or 'a' for all", noun)
	return b.String()
}

func askFunc(p Prompter, question string) func(context.Context, string) (string, error) {
	if p == nil {
		return nil
	}
	return func(ctx context.Context, def string) (string, error) {
		return p.Ask(ctx, question, def)
	}
}

func confirmFunc(p Prompter, question string) func(context.Context, bool) (bool, error) {
	if p == nil {
		return nil
	}
	return func(ctx context.Context, def bool) (bool, error) {
		return p.Confirm(ctx, question, def)
	}
}

func pipelineString(plan pipeline.Plan) string {
	return strings.Join(plan.Names(), " -> ")
}
