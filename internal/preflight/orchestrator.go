package preflight

import (
	"context"
	"fmt"
)

// Executor runs one step. A returned error stops the current Advance and
// leaves the step pending.
type Executor func(ctx context.Context, step Step) error

// Plan partitions an order at a context level.
type Plan struct {
	Level   Level
	Ready   []Step
	Pending []Step
}

// Orchestrator walks an Order, running each step once its minimum context
// level is reached. It is not safe for concurrent use.
type Orchestrator struct {
	order    Order
	level    Level
	executed [stepCount]bool
}

// NewOrchestrator returns an orchestrator over order. Steps listed in done
// are treated as already executed, which lets a per-source orchestrator skip
// run-scoped steps answered earlier.
func NewOrchestrator(order Order, done ...Step) *Orchestrator {
	o := &Orchestrator{order: append(Order(nil), order...)}
	for _, s := range done {
		if s.valid() {
			o.executed[s] = true
		}
	}
	return o
}

// Level returns the highest context level seen by Advance.
func (o *Orchestrator) Level() Level { return o.level }

// Plan reports which unexecuted steps would run at level and which must wait.
func (o *Orchestrator) Plan(level Level) Plan {
	plan := Plan{Level: level}
	for _, s := range o.order {
		if o.executed[s] {
			continue
		}
		if s.MinLevel() <= level {
			plan.Ready = append(plan.Ready, s)
		} else {
			plan.Pending = append(plan.Pending, s)
		}
	}
	return plan
}

// Advance raises the context level and executes, in configured order, every
// step that has become eligible and has not run yet.
func (o *Orchestrator) Advance(ctx context.Context, level Level, exec Executor) error {
	if level < o.level {
		return fmt.Errorf("preflight context cannot go back from %s to %s", o.level, level)
	}
	o.level = level
	for _, s := range o.order {
		if o.executed[s] || s.MinLevel() > level {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := exec(ctx, s); err != nil {
			return fmt.Errorf("preflight step %s: %w", s, err)
		}
		o.executed[s] = true
	}
	return nil
}

// Pending returns steps that have not executed, in configured order.
func (o *Orchestrator) Pending() []Step {
	var out []Step
	for _, s := range o.order {
		if !o.executed[s] {
			out = append(out, s)
		}
	}
	return out
}

// Executed returns steps that have run, in configured order.
func (o *Orchestrator) Executed() []Step {
	var out []Step
	for _, s := range o.order {
		if o.executed[s] {
			out = append(out, s)
		}
	}
	return out
}
