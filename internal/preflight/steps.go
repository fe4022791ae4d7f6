package preflight

import (
	"fmt"
	"strings"
)

// Step is one registered decision point.
type Step int

const (
	ReuseStage Step = iota
	UseManifestAnswers
	ChooseSource
	ChooseBooks
	SkipProcessedBooks
	Publish
	WipeID3
	CleanStage
	SourceAuthor
	BookTitle
	Cover
	OverwriteDestination

	stepCount
)

// Level is how much of the run is known when a step executes.
type Level int

const (
	LevelNone Level = iota
	LevelSourceSelected
	LevelBooksSelected
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelSourceSelected:
		return "source_selected"
	case LevelBooksSelected:
		return "books_selected"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Scope is the unit a step's decision applies to.
type Scope int

const (
	ScopeRun Scope = iota
	ScopeSource
	ScopeBook
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeSource:
		return "source"
	case ScopeBook:
		return "book"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

type stepMeta struct {
	key        string
	nonMovable bool
	minLevel   Level
	scope      Scope
}

// registry is indexed by Step; its order is the default step order.
var registry = [stepCount]stepMeta{
	ReuseStage:           {key: "reuse_stage", minLevel: LevelSourceSelected, scope: ScopeSource},
	UseManifestAnswers:   {key: "use_manifest_answers", minLevel: LevelSourceSelected, scope: ScopeSource},
	ChooseSource:         {key: "choose_source", nonMovable: true, minLevel: LevelNone, scope: ScopeRun},
	ChooseBooks:          {key: "choose_books", nonMovable: true, minLevel: LevelSourceSelected, scope: ScopeSource},
	SkipProcessedBooks:   {key: "skip_processed_books", minLevel: LevelBooksSelected, scope: ScopeSource},
	Publish:              {key: "publish", minLevel: LevelSourceSelected, scope: ScopeSource},
	WipeID3:              {key: "wipe_id3", minLevel: LevelSourceSelected, scope: ScopeSource},
	CleanStage:           {key: "clean_stage", minLevel: LevelSourceSelected, scope: ScopeSource},
	SourceAuthor:         {key: "source_author", minLevel: LevelSourceSelected, scope: ScopeSource},
	BookTitle:            {key: "book_title", minLevel: LevelBooksSelected, scope: ScopeBook},
	Cover:                {key: "cover", minLevel: LevelBooksSelected, scope: ScopeBook},
	OverwriteDestination: {key: "overwrite_destination", minLevel: LevelBooksSelected, scope: ScopeBook},
}

// String returns the configuration key.
func (s Step) String() string {
	if !s.valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return registry[s].key
}

func (s Step) valid() bool { return s >= 0 && s < stepCount }

// MinLevel returns the context level the step needs before it may run.
func (s Step) MinLevel() Level { return registry[s].minLevel }

// Scope returns what the step's decision applies to.
func (s Step) Scope() Scope { return registry[s].scope }

// Movable reports whether configuration may reposition the step.
func (s Step) Movable() bool { return !registry[s].nonMovable }

// Steps returns every step in default order.
func Steps() []Step {
	out := make([]Step, 0, stepCount)
	for s := Step(0); s < stepCount; s++ {
		out = append(out, s)
	}
	return out
}

// ParseStep maps a configuration key to its Step.
func ParseStep(key string) (Step, error) {
	key = strings.TrimSpace(key)
	for s := Step(0); s < stepCount; s++ {
		if registry[s].key == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown preflight step key: %s", key)
}

// Keys returns the configuration keys of every step in default order.
func Keys() []string {
	out := make([]string, 0, stepCount)
	for _, s := range Steps() {
		out = append(out, s.String())
	}
	return out
}
