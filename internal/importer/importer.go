package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"audiomason/internal/config"
	"audiomason/internal/covers"
	"audiomason/internal/inbox"
	"audiomason/internal/logging"
	"audiomason/internal/preflight"
	"audiomason/internal/services"
	"audiomason/internal/staging"
)

// Dependencies are the collaborators an Importer calls. Lookup, Prompter
// and History may be nil.
type Dependencies struct {
	Unpacker   staging.Unpacker
	Transcoder Transcoder
	Chapters   ChapterProber
	Tags       TagWriter
	Extractor  covers.Extractor
	Probe      covers.ContainerProbe
	Cache      *covers.Cache
	Lookup     Lookup
	Prompter   Prompter
	History    History
}

// Importer runs import invocations against one configuration.
type Importer struct {
	cfg    *config.Config
	deps   Dependencies
	covers *covers.Resolver
	logger *slog.Logger
}

// New constructs an Importer.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "importer")
	return &Importer{
		cfg:  cfg,
		deps: deps,
		covers: &covers.Resolver{
			Embedded:  deps.Tags,
			Extractor: deps.Extractor,
			Probe:     deps.Probe,
			Cache:     deps.Cache,
			Logger:    logger,
		},
		logger: logger,
	}
}

// Run imports the sources picked for rc. The returned report is never nil
// and lists every book handled before a failure.
func (im *Importer) Run(ctx context.Context, rc RunContext) (*Report, error) {
	ctx = services.WithRequestID(ctx, rc.RunID)
	logger := logging.WithContext(ctx, im.logger)
	report := newReport(rc.RunID)

	if err := os.MkdirAll(im.cfg.Paths.StageDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrConfiguration, "import", "init", "create stage root", err)
	}

	policy := im.policy(rc, logger)
	var sources []inbox.Source
	runSteps := preflight.NewOrchestrator(rc.Order)
	err := runSteps.Advance(ctx, preflight.LevelNone, func(ctx context.Context, step preflight.Step) error {
		if step != preflight.ChooseSource {
			return fmt.Errorf("step %s needs a selected source", step)
		}
		picked, err := im.chooseSources(ctx, rc, policy)
		sources = picked
		return err
	})
	if err != nil {
		return report, err
	}
	if len(sources) == 0 {
		logger.Info("no sources to import", logging.String(logging.FieldEventType, "inbox_empty"))
		return report, nil
	}

	cleanInbox, err := im.resolveCleanInbox(ctx, rc, policy)
	if err != nil {
		return report, err
	}

	logger.Info("import started",
		logging.Int("sources", len(sources)),
		logging.Bool("dry_run", rc.DryRun),
		logging.String("pipeline", pipelineString(rc.Pipeline)),
		logging.String(logging.FieldEventType, "import_start"),
	)

	if err := im.checkStageCollisions(sources); err != nil {
		return report, err
	}

	sessions := make([]*session, 0, len(sources))
	for _, src := range sources {
		s, err := im.newSession(ctx, rc, src, report)
		if err != nil {
			return report.finish(), err
		}
		if err := s.preflight(ctx); err != nil {
			return report.finish(), err
		}
		sessions = append(sessions, s)
	}

	for _, s := range sessions {
		if err := s.process(ctx); err != nil {
			return report.finish(), err
		}
		s.finalize(ctx, cleanInbox)
	}

	report.finish()
	logger.Info("import finished",
		logging.Int("sources", report.Totals.Sources),
		logging.Int("books", report.Totals.Books),
		logging.Int("processed", report.Totals.Processed),
		logging.String(logging.FieldEventType, "import_complete"),
	)
	return report, nil
}

// checkStageCollisions fails when two selected sources would share a run
// directory, before any stage is touched.
func (im *Importer) checkStageCollisions(sources []inbox.Source) error {
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		dir := staging.RunDir(im.cfg.Paths.StageDir, src.Name)
		if prev, ok := seen[dir]; ok {
			return services.Wrap(services.ErrValidation, "import", "stage",
				fmt.Sprintf("sources %q and %q share stage %s", prev, src.Path, dir), nil)
		}
		seen[dir] = src.Path
	}
	return nil
}

func (im *Importer) policy(rc RunContext, logger *slog.Logger) preflight.Policy {
	return preflight.Policy{
		Interactive:     rc.Interactive && im.deps.Prompter != nil,
		Disabled:        rc.Disabled,
		PromptsDisabled: rc.PromptsDisabled,
		Logger:          logger,
	}
}

// chooseSources resolves the choose_source step.
func (im *Importer) chooseSources(ctx context.Context, rc RunContext, policy preflight.Policy) ([]inbox.Source, error) {
	inboxDir := im.cfg.Paths.InboxDir
	if len(rc.Overrides.Sources) > 0 {
		picked := make([]inbox.Source, 0, len(rc.Overrides.Sources))
		listInbox := false
		for _, raw := range rc.Overrides.Sources {
			path := raw
			if !filepath.IsAbs(path) {
				path = filepath.Join(inboxDir, path)
			}
			if filepath.Clean(path) == filepath.Clean(inboxDir) {
				listInbox = true
				continue
			}
			src, err := inbox.Resolve(inboxDir, path)
			if err != nil {
				return nil, err
			}
			picked = append(picked, src)
		}
		if !listInbox {
			names := make([]string, len(picked))
			for i, src := range picked {
				names[i] = src.Name
			}
			policy.Logger.Info("preflight decision",
				logging.Args(logging.DecisionAttrs(preflight.ChooseSource.String(), fmt.Sprint(names), string(preflight.ReasonOverride))...)...)
			return picked, nil
		}
	}

	sources, err := inbox.List(inboxDir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "import", "list inbox", inboxDir, err)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}

	in := preflight.Inputs[string]{
		Default: "1",
		Prompt:  askFunc(im.deps.Prompter, selectionQuestion("Sources", names, "source")),
	}
	if rc.Overrides.AllSources {
		in.Override = preflight.Some(selectAll)
	}
	d, err := preflight.Resolve(ctx, policy, preflight.ChooseSource, in)
	if err != nil {
		return nil, err
	}
	idx, err := parseSelection(d.Value, len(sources))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "import", "choose source", "invalid source selection", err)
	}
	picked := make([]inbox.Source, 0, len(idx))
	for _, i := range idx {
		picked = append(picked, sources[i])
	}
	return picked, nil
}

// resolveCleanInbox decides once per run whether processed sources are
// removed from the inbox.
func (im *Importer) resolveCleanInbox(ctx context.Context, rc RunContext, policy preflight.Policy) (bool, error) {
	switch rc.CleanInbox {
	case CleanInboxYes:
		return true, nil
	case CleanInboxNo:
		return false, nil
	}
	if policy.PromptOff("clean_inbox") || im.deps.Prompter == nil {
		return false, nil
	}
	clean, err := im.deps.Prompter.Confirm(ctx, "Clean inbox after successful import?", false)
	if err != nil {
		return false, err
	}
	policy.Logger.Info("preflight decision",
		logging.Args(logging.DecisionAttrs("clean_inbox", fmt.Sprint(clean), string(preflight.ReasonPrompt))...)...)
	return clean, nil
}
