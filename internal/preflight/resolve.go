package preflight

import (
	"context"
	"fmt"
	"log/slog"

	"audiomason/internal/logging"
)

// Reason records where a decision's value came from.
type Reason string

const (
	ReasonOverride Reason = "override"
	ReasonManifest Reason = "manifest"
	ReasonPrompt   Reason = "prompt"
	ReasonDefault  Reason = "default"
	ReasonDisabled Reason = "disabled"
)

// Policy carries the prompt settings that apply to every decision in a run.
type Policy struct {
	Interactive bool
	// Disabled steps never prompt and always take their default.
	Disabled map[Step]bool
	// PromptsDisabled holds prompt keys that must not ask. Keys cover every
	// step plus auxiliary prompts such as "normalize_author"; "*" matches all.
	PromptsDisabled map[string]bool
	Logger          *slog.Logger
}

// PromptOff reports whether the prompt named key is suppressed.
func (p Policy) PromptOff(key string) bool {
	return !p.Interactive || p.PromptsDisabled["*"] || p.PromptsDisabled[key]
}

// CanPrompt reports whether step may ask the operator.
func (p Policy) CanPrompt(step Step) bool {
	return !p.Disabled[step] && !p.PromptOff(step.String())
}

// Candidate is an optional value.
type Candidate[T any] struct {
	Value T
	OK    bool
}

// Some wraps a present value.
func Some[T any](v T) Candidate[T] { return Candidate[T]{Value: v, OK: true} }

// None is the absent value.
func None[T any]() Candidate[T] { return Candidate[T]{} }

// Inputs are the possible sources for one decision.
type Inputs[T any] struct {
	Override Candidate[T]
	Manifest Candidate[T]
	Default  T
	// Prompt asks the operator, offering def as the suggested answer.
	Prompt func(ctx context.Context, def T) (T, error)
	// Label qualifies the decision in logs, e.g. a book label.
	Label string
}

// Decision is a resolved value and its provenance.
type Decision[T any] struct {
	Value  T
	Reason Reason
}

// Resolve applies override > manifest > prompt precedence. When prompting
// is not possible the default is taken.
func Resolve[T any](ctx context.Context, p Policy, step Step, in Inputs[T]) (Decision[T], error) {
	var d Decision[T]
	switch {
	case in.Override.OK:
		d = Decision[T]{Value: in.Override.Value, Reason: ReasonOverride}
	case in.Manifest.OK:
		d = Decision[T]{Value: in.Manifest.Value, Reason: ReasonManifest}
	case p.Disabled[step]:
		d = Decision[T]{Value: in.Default, Reason: ReasonDisabled}
	case !p.CanPrompt(step) || in.Prompt == nil:
		d = Decision[T]{Value: in.Default, Reason: ReasonDefault}
	default:
		v, err := in.Prompt(ctx, in.Default)
		if err != nil {
			return Decision[T]{}, err
		}
		d = Decision[T]{Value: v, Reason: ReasonPrompt}
	}

	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	attrs := logging.DecisionAttrs(step.String(), fmt.Sprint(d.Value), string(d.Reason))
	if in.Label != "" {
		attrs = append(attrs, logging.String(logging.FieldBook, in.Label))
	}
	logger.InfoContext(ctx, "preflight decision", logging.Args(attrs...)...)
	return d, nil
}
