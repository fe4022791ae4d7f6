package importer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"audiomason/internal/answers"
	"audiomason/internal/config"
	"audiomason/internal/pipeline"
	"audiomason/internal/preflight"
	"audiomason/internal/services"
)

// Clean-inbox modes.
const (
	CleanInboxAsk = "ask"
	CleanInboxYes = "yes"
	CleanInboxNo  = "no"
)

// Overrides are explicit answers given on the command line. Nil pointers and
// empty strings mean the flag was not given.
type Overrides struct {
	// Sources are inbox entries named on the command line. Relative paths
	// are taken relative to the inbox.
	Sources    []string
	AllSources bool
	// Books are labels to pick; "all" picks every detected book.
	Books         []string
	ReuseStage    *bool
	UseManifest   *bool
	SkipProcessed *bool
	Publish       *bool
	WipeID3       *bool
	CleanStage    *bool
	CleanInbox    string
	Author        string
	// Title applies only when a single book is picked.
	Title string
	// Cover is "file", "embedded", "skip", "file:<path>", a path or a URL.
	Cover     string
	Overwrite *bool
}

// RunContext carries everything one import invocation needs to know. It is
// built once by NewRunContext and passed by value; the importer never
// modifies it.
type RunContext struct {
	RunID       string
	Interactive bool
	DryRun      bool
	Overrides   Overrides
	Answers     *answers.File

	Order           preflight.Order
	Disabled        map[preflight.Step]bool
	PromptsDisabled map[string]bool
	Pipeline        pipeline.Plan
	CleanInbox      string
}

// NewRunContext validates the configured step lists and clean-inbox mode.
// It fails before anything touches the filesystem.
func NewRunContext(cfg *config.Config, runID string, interactive, dryRun bool, overrides Overrides, ans *answers.File) (RunContext, error) {
	if cfg == nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "import", "init", "configuration is required", nil)
	}
	order, err := cfg.PreflightOrder()
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "import", "preflight steps", "", err)
	}
	plan, err := cfg.PipelinePlan()
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "import", "pipeline steps", "", err)
	}
	disabled, err := cfg.DisabledSteps()
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "import", "preflight disable", "", err)
	}
	prompts, err := cfg.DisabledPrompts()
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "import", "prompts disable", "", err)
	}

	cleanInbox := strings.ToLower(strings.TrimSpace(overrides.CleanInbox))
	if cleanInbox == "" {
		cleanInbox = cfg.Preflight.CleanInbox
	}
	switch cleanInbox {
	case CleanInboxAsk, CleanInboxYes, CleanInboxNo:
	default:
		return RunContext{}, services.Wrap(services.ErrValidation, "import", "clean inbox",
			fmt.Sprintf("clean_inbox must be one of ask|yes|no, got %q", cleanInbox), nil)
	}
	if !interactive && cleanInbox == CleanInboxAsk {
		return RunContext{}, services.Wrap(services.ErrValidation, "import", "clean inbox",
			"non-interactive run requires an explicit inbox cleanup decision: set --clean-inbox yes|no", nil)
	}

	if ans == nil {
		ans = &answers.File{}
	}
	overrides.Sources = slices.Clone(overrides.Sources)
	overrides.Books = slices.Clone(overrides.Books)

	return RunContext{
		RunID:           runID,
		Interactive:     interactive,
		DryRun:          dryRun,
		Overrides:       overrides,
		Answers:         ans,
		Order:           slices.Clone(order),
		Disabled:        maps.Clone(disabled),
		PromptsDisabled: maps.Clone(prompts),
		Pipeline:        slices.Clone(plan),
		CleanInbox:      cleanInbox,
	}, nil
}
