package preflight

import (
	"fmt"
	"strings"
)

// Order is a validated step sequence.
type Order []Step

// DefaultOrder returns the built-in step order.
func DefaultOrder() Order { return Order(Steps()) }

// Keys renders the order as configuration keys.
func (o Order) Keys() []string {
	out := make([]string, len(o))
	for i, s := range o {
		out[i] = s.String()
	}
	return out
}

// Index returns the position of s, or -1.
func (o Order) Index(s Step) int {
	for i, candidate := range o {
		if candidate == s {
			return i
		}
	}
	return -1
}

// dependencies are hard "a before b" pairs every order must satisfy.
var dependencies = [][2]Step{
	{ReuseStage, UseManifestAnswers},
	{ReuseStage, ChooseBooks},
	{UseManifestAnswers, ChooseBooks},
	{ChooseSource, ChooseBooks},
	{ChooseBooks, SkipProcessedBooks},
	{ChooseBooks, SourceAuthor},
	{SourceAuthor, BookTitle},
	{BookTitle, Cover},
	{Cover, OverwriteDestination},
	{ChooseBooks, BookTitle},
	{ChooseBooks, Cover},
	{ChooseBooks, OverwriteDestination},
}

// ParseOrder validates configured step keys. Blank entries are ignored; an
// empty list yields the default order.
func ParseOrder(keys []string) (Order, error) {
	if len(keys) == 0 {
		return DefaultOrder(), nil
	}

	seen := make(map[Step]bool, stepCount)
	order := make(Order, 0, len(keys))
	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		step, err := ParseStep(key)
		if err != nil {
			return nil, err
		}
		if seen[step] {
			return nil, fmt.Errorf("duplicate preflight step key: %s", key)
		}
		seen[step] = true
		order = append(order, step)
	}

	var missing []string
	for _, s := range Steps() {
		if !seen[s] {
			missing = append(missing, s.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required preflight step key(s): %s", strings.Join(missing, ", "))
	}

	for _, dep := range dependencies {
		if order.Index(dep[0]) > order.Index(dep[1]) {
			return nil, fmt.Errorf("order requires %s before %s", dep[0], dep[1])
		}
	}
	if err := checkNonMovable(order); err != nil {
		return nil, err
	}
	return order, nil
}

// checkNonMovable rejects orders that move a non-movable step past another
// non-movable step.
func checkNonMovable(order Order) error {
	var fixed []Step
	for _, s := range order {
		if !s.Movable() {
			fixed = append(fixed, s)
		}
	}
	for i := 1; i < len(fixed); i++ {
		if fixed[i] < fixed[i-1] {
			return fmt.Errorf("order requires %s before %s", fixed[i], fixed[i-1])
		}
	}
	return nil
}
