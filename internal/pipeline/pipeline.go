// Package pipeline validates the per-book processing step list.
package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Step is one processing stage applied to a book.
type Step int

const (
	Unpack Step = iota
	Convert
	Chapters
	Split
	Rename
	Tags
	Cover
	Publish

	stepCount
)

var stepNames = [stepCount]string{
	Unpack:   "unpack",
	Convert:  "convert",
	Chapters: "chapters",
	Split:    "split",
	Rename:   "rename",
	Tags:     "tags",
	Cover:    "cover",
	Publish:  "publish",
}

var required = []Step{Unpack, Convert, Rename, Tags, Cover}

// constraints apply only when both steps are present.
var constraints = [][2]Step{
	{Unpack, Convert},
	{Convert, Chapters},
	{Chapters, Split},
	{Convert, Rename},
	{Convert, Tags},
	{Convert, Cover},
	{Convert, Publish},
	{Split, Rename},
	{Split, Tags},
	{Split, Cover},
	{Split, Publish},
}

func (s Step) String() string {
	if s < 0 || s >= stepCount {
		return fmt.Sprintf("pipeline(%d)", int(s))
	}
	return stepNames[s]
}

// ParseStep maps a configuration name to its Step.
func ParseStep(name string) (Step, bool) {
	for s := Step(0); s < stepCount; s++ {
		if stepNames[s] == name {
			return s, true
		}
	}
	return 0, false
}

// Plan is a validated step list.
type Plan []Step

// Default returns every step in canonical order.
func Default() Plan {
	out := make(Plan, 0, stepCount)
	for s := Step(0); s < stepCount; s++ {
		out = append(out, s)
	}
	return out
}

// Has reports whether the plan includes s.
func (p Plan) Has(s Step) bool { return slices.Contains(p, s) }

// Names renders the plan as configuration names.
func (p Plan) Names() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.String()
	}
	return out
}

// Parse validates names. A nil list yields the default plan.
func Parse(names []string) (Plan, error) {
	if names == nil {
		return Default(), nil
	}

	var unknown []string
	plan := make(Plan, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		step, ok := ParseStep(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		plan = append(plan, step)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown pipeline step(s): %s", strings.Join(unknown, ", "))
	}

	seen := make(map[Step]bool, len(plan))
	for _, s := range plan {
		if seen[s] {
			return nil, fmt.Errorf("duplicate pipeline step: %s", s)
		}
		seen[s] = true
	}

	var missing []string
	for _, s := range required {
		if !seen[s] {
			missing = append(missing, s.String())
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("missing required pipeline step(s): %s", strings.Join(missing, ", "))
	}

	for _, c := range constraints {
		i, j := slices.Index(plan, c[0]), slices.Index(plan, c[1])
		if i >= 0 && j >= 0 && i > j {
			return nil, fmt.Errorf("invalid pipeline steps order: %s must come before %s", c[0], c[1])
		}
	}
	return plan, nil
}
