package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"audiomason/internal/covers"
	"audiomason/internal/destination"
	"audiomason/internal/detect"
	"audiomason/internal/fileutil"
	"audiomason/internal/fingerprint"
	"audiomason/internal/inbox"
	"audiomason/internal/logging"
	"audiomason/internal/manifest"
	"audiomason/internal/preflight"
	"audiomason/internal/services"
	"audiomason/internal/staging"
	"audiomason/internal/textutil"
)

// bookPlan holds the decisions for one picked book.
type bookPlan struct {
	book       detect.Book
	title      string
	outTitle   string
	cover      covers.Choice
	candidates covers.Candidates
	target     destination.Target
	// skip is set for books an earlier run already processed.
	skip   bool
	report *BookReport
}

// session is one source moving through preflight and processing.
type session struct {
	im     *Importer
	rc     RunContext
	src    inbox.Source
	logger *slog.Logger
	policy preflight.Policy
	steps  *preflight.Orchestrator

	fingerprint string
	run         *staging.Run
	prior       *manifest.Manifest
	staged      bool
	reused      bool
	useManifest bool
	// pending collects decisions made before the stage directory exists.
	pending manifest.Manifest

	books      []detect.Book
	picked     []*bookPlan
	publish    bool
	wipe       bool
	cleanStage bool
	author     string

	report *SourceReport
}

func (im *Importer) newSession(ctx context.Context, rc RunContext, src inbox.Source, report *Report) (*session, error) {
	ctx = services.WithSource(ctx, src.Name)
	logger := logging.WithContext(ctx, im.logger)

	fp, err := fingerprint.Compute(ctx, src.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "import", "fingerprint", src.Path, err)
	}
	if im.deps.History != nil {
		prev, seen, err := im.deps.History.SeenFingerprint(ctx, fp)
		switch {
		case err != nil:
			logger.Debug("history lookup failed", logging.Error(err))
		case seen:
			logging.WarnWithContext(logger, "source was already imported", "source_seen_before",
				logging.String("previous_run", prev.RunID),
				logging.String("previous_destination", prev.Destination),
				logging.String(logging.FieldErrorHint, "remove the source from the inbox if the earlier import is complete"),
				logging.String(logging.FieldImpact, "the book may be imported twice"),
			)
		}
	}

	run := staging.Open(im.cfg.Paths.StageDir, src.Name)
	prior, status := run.Manifest.Load()
	if status == manifest.StatusCorrupt {
		logging.WarnWithContext(logger, "stage manifest unreadable; starting with an empty ledger", "manifest_corrupt",
			logging.String("path", run.Manifest.Path()),
			logging.String(logging.FieldErrorHint, "earlier answers will be asked again"),
			logging.String(logging.FieldImpact, "recorded decisions ignored"),
		)
	}

	s := &session{
		im:          im,
		rc:          rc,
		src:         src,
		logger:      logger,
		policy:      im.policy(rc, logger),
		steps:       preflight.NewOrchestrator(rc.Order, preflight.ChooseSource),
		fingerprint: fp,
		run:         run,
		prior:       prior,
		report:      report.addSource(src.Name, fp, run.Dir),
	}
	logger.Info("source selected",
		logging.String("fingerprint", fp),
		logging.String("kind", string(src.Kind)),
		logging.String(logging.FieldEventType, "source_selected"),
	)
	return s, nil
}

// preflight runs every decision step for the source.
func (s *session) preflight(ctx context.Context) error {
	ctx = services.WithSource(ctx, s.src.Name)
	if err := s.steps.Advance(ctx, preflight.LevelSourceSelected, s.execute); err != nil {
		return err
	}
	if err := s.steps.Advance(ctx, preflight.LevelBooksSelected, s.execute); err != nil {
		return err
	}
	if pending := s.steps.Pending(); len(pending) > 0 {
		return fmt.Errorf("preflight incomplete for %s: %v", s.src.Name, pending)
	}
	return nil
}

// execute dispatches one step. Every Step must have a case.
func (s *session) execute(ctx context.Context, step preflight.Step) error {
	switch step {
	case preflight.ChooseSource:
		return nil
	case preflight.ReuseStage:
		return s.decideReuse(ctx)
	case preflight.UseManifestAnswers:
		return s.decideUseManifest(ctx)
	case preflight.ChooseBooks:
		return s.chooseBooks(ctx)
	case preflight.SkipProcessedBooks:
		return s.decideSkipProcessed(ctx)
	case preflight.Publish:
		v, err := s.decideBool(ctx, step, s.rc.Overrides.Publish, s.prior.Decisions.Publish, "Publish to the library after import?")
		if err != nil {
			return err
		}
		s.publish = v
		return s.persist(manifest.Manifest{Decisions: manifest.Decisions{Publish: manifest.Bool(v)}})
	case preflight.WipeID3:
		v, err := s.decideBool(ctx, step, s.rc.Overrides.WipeID3, s.prior.Decisions.WipeID3, "Wipe existing ID3 tags before tagging?")
		if err != nil {
			return err
		}
		s.wipe = v
		return s.persist(manifest.Manifest{Decisions: manifest.Decisions{WipeID3: manifest.Bool(v)}})
	case preflight.CleanStage:
		v, err := s.decideBool(ctx, step, s.rc.Overrides.CleanStage, s.prior.Decisions.CleanStage, "Clean stage after successful import?")
		if err != nil {
			return err
		}
		s.cleanStage = v
		return s.persist(manifest.Manifest{Decisions: manifest.Decisions{CleanStage: manifest.Bool(v)}})
	case preflight.SourceAuthor:
		return s.decideAuthor(ctx)
	case preflight.BookTitle:
		return s.decideTitles(ctx)
	case preflight.Cover:
		return s.decideCovers(ctx)
	case preflight.OverwriteDestination:
		return s.decideDestinations(ctx)
	default:
		return fmt.Errorf("unhandled preflight step %s", step)
	}
}

// persist records patch in the stage manifest, or holds it until the stage
// exists.
func (s *session) persist(patch manifest.Manifest) error {
	if !s.staged {
		s.pending.Merge(patch)
		return nil
	}
	if _, err := s.run.Manifest.Merge(patch); err != nil {
		return fmt.Errorf("record decisions for %s: %w", s.src.Name, err)
	}
	return nil
}

func optional(v *bool) preflight.Candidate[bool] {
	if v == nil {
		return preflight.None[bool]()
	}
	return preflight.Some(*v)
}

// recorded returns a manifest value when recorded answers may be used.
func (s *session) recorded(v *bool) preflight.Candidate[bool] {
	if !s.useManifest || v == nil {
		return preflight.None[bool]()
	}
	return preflight.Some(*v)
}

func (s *session) decideBool(ctx context.Context, step preflight.Step, override, recorded *bool, question string) (bool, error) {
	d, err := preflight.Resolve(ctx, s.policy, step, preflight.Inputs[bool]{
		Override: optional(override),
		Manifest: s.recorded(recorded),
		Prompt:   confirmFunc(s.im.deps.Prompter, question),
	})
	if err != nil {
		return false, err
	}
	return d.Value, nil
}

func (s *session) decideReuse(ctx context.Context) error {
	reusable := s.run.Reusable(s.fingerprint)
	in := preflight.Inputs[bool]{Default: reusable}
	if reusable {
		in.Override = optional(s.rc.Overrides.ReuseStage)
		in.Prompt = confirmFunc(s.im.deps.Prompter, fmt.Sprintf("Reuse existing stage %s?", s.run.Dir))
	}
	d, err := preflight.Resolve(ctx, s.policy, preflight.ReuseStage, in)
	if err != nil {
		return err
	}

	reused, err := s.run.Prepare(ctx, s.src, s.fingerprint, d.Value, s.im.deps.Unpacker, s.logger)
	if err != nil {
		return err
	}
	s.staged = true
	s.reused = reused
	if !reused {
		s.prior = manifest.New()
	}

	pending := s.pending
	s.pending = manifest.Manifest{}
	return s.persist(pending)
}

func (s *session) decideUseManifest(ctx context.Context) error {
	in := preflight.Inputs[bool]{Default: s.reused}
	if s.reused {
		in.Override = optional(s.rc.Overrides.UseManifest)
		in.Prompt = confirmFunc(s.im.deps.Prompter, "Use answers recorded in the stage manifest?")
	}
	d, err := preflight.Resolve(ctx, s.policy, preflight.UseManifestAnswers, in)
	if err != nil {
		return err
	}
	s.useManifest = s.reused && d.Value
	return nil
}

func (s *session) chooseBooks(ctx context.Context) error {
	if !s.staged {
		return fmt.Errorf("books of %s cannot be chosen before the source is staged", s.src.Name)
	}
	books, err := detect.Detect(ctx, s.run.SrcDir)
	if err != nil {
		return err
	}
	s.books = books
	labels := detect.Labels(books)

	in := preflight.Inputs[string]{Default: "1"}
	if prev := indexesOf(labels, s.prior.Books.Picked); len(prev) > 0 {
		if s.useManifest && len(prev) == len(s.prior.Books.Picked) {
			in.Manifest = preflight.Some(formatSelection(prev, len(labels)))
		}
		in.Default = formatSelection(prev, len(labels))
	}
	if len(s.rc.Overrides.Books) > 0 {
		sel, err := overrideSelection(labels, s.rc.Overrides.Books)
		if err != nil {
			return err
		}
		in.Override = preflight.Some(sel)
	}
	if len(books) > 1 {
		in.Prompt = askFunc(s.im.deps.Prompter, selectionQuestion("Books", labels, "book"))
	}

	d, err := preflight.Resolve(ctx, s.policy, preflight.ChooseBooks, in)
	if err != nil {
		return err
	}
	idx, err := parseSelection(d.Value, len(books))
	if err != nil {
		return services.Wrap(services.ErrValidation, "preflight", "choose books", "invalid book selection", err)
	}

	s.picked = s.picked[:0]
	picked := make([]string, 0, len(idx))
	for _, i := range idx {
		b := books[i]
		s.picked = append(s.picked, &bookPlan{
			book:   b,
			report: s.report.addBook(b.Label),
		})
		picked = append(picked, b.Label)
	}
	return s.persist(manifest.Manifest{Books: manifest.Books{Detected: labels, Picked: picked}})
}

func indexesOf(labels, want []string) []int {
	var out []int
	for _, w := range want {
		if i := slices.Index(labels, w); i >= 0 {
			out = append(out, i)
		}
	}
	return out
}

func overrideSelection(labels, want []string) (string, error) {
	if slices.ContainsFunc(want, func(v string) bool { return strings.EqualFold(v, "all") }) {
		return selectAll, nil
	}
	idx := indexesOf(labels, want)
	if len(idx) != len(want) {
		var unknown []string
		for _, w := range want {
			if !slices.Contains(labels, w) {
				unknown = append(unknown, w)
			}
		}
		return "", services.Wrap(services.ErrValidation, "preflight", "choose books",
			fmt.Sprintf("unknown book label(s): %s (detected: %s)", strings.Join(unknown, ", "), strings.Join(labels, ", ")), nil)
	}
	return formatSelection(idx, len(labels)), nil
}

func (s *session) decideSkipProcessed(ctx context.Context) error {
	current, _ := s.run.Manifest.Load()
	var done []*bookPlan
	for _, p := range s.picked {
		if current.IsProcessed(p.book.Label) {
			done = append(done, p)
		}
	}
	if len(done) == 0 {
		return nil
	}

	d, err := preflight.Resolve(ctx, s.policy, preflight.SkipProcessedBooks, preflight.Inputs[bool]{
		Override: optional(s.rc.Overrides.SkipProcessed),
		Manifest: s.recorded(s.prior.Decisions.SkipProcessed),
		Default:  true,
		Prompt:   confirmFunc(s.im.deps.Prompter, fmt.Sprintf("Skip %d already processed book(s)?", len(done))),
	})
	if err != nil {
		return err
	}
	for _, p := range done {
		p.skip = d.Value
	}
	return s.persist(manifest.Manifest{Decisions: manifest.Decisions{SkipProcessed: manifest.Bool(d.Value)}})
}

func (s *session) decideAuthor(ctx context.Context) error {
	in := preflight.Inputs[string]{
		Default: s.guessAuthor(),
		Prompt:  askFunc(s.im.deps.Prompter, "Author"),
	}
	if author := strings.TrimSpace(s.rc.Overrides.Author); author != "" {
		in.Override = preflight.Some(author)
	} else if author := strings.TrimSpace(s.rc.Answers.Source(s.src.Name).Author); author != "" {
		in.Override = preflight.Some(author)
	}
	if s.useManifest && s.prior.Decisions.Author != "" {
		in.Manifest = preflight.Some(s.prior.Decisions.Author)
	}

	d, err := preflight.Resolve(ctx, s.policy, preflight.SourceAuthor, in)
	if err != nil {
		return err
	}
	author := strings.TrimSpace(d.Value)
	if d.Reason == preflight.ReasonPrompt || d.Reason == preflight.ReasonDefault {
		if author, err = s.offer(ctx, "normalize_author", "author", author, textutil.NormalizeName(author)); err != nil {
			return err
		}
		if s.im.deps.Lookup != nil && s.canOffer("normalize_author") {
			if suggestion, ok := s.im.deps.Lookup.SuggestAuthor(ctx, author); ok {
				if author, err = s.offer(ctx, "normalize_author", "author", author, suggestion); err != nil {
					return err
				}
			}
		}
	}
	if author == "" {
		return services.Wrap(services.ErrValidation, "preflight", "source author", "author is required for "+s.src.Name, nil)
	}
	s.author = author
	for _, p := range s.picked {
		p.report.Author = author
	}
	return s.persist(manifest.Manifest{Decisions: manifest.Decisions{Author: author}})
}

// guessAuthor derives a default author from the source name, falling back
// to the first named book.
func (s *session) guessAuthor() string {
	if author, _ := textutil.GuessAuthorTitle(s.src.Stem()); author != "" {
		return author
	}
	for _, p := range s.picked {
		if p.book.IsRoot() {
			continue
		}
		if author, _ := textutil.GuessAuthorTitle(path.Base(p.book.Label)); author != "" {
			return author
		}
	}
	return ""
}

func (s *session) defaultTitle(b detect.Book) string {
	name := path.Base(b.Label)
	if b.IsRoot() {
		name = s.src.Stem()
	}
	if _, title := textutil.GuessAuthorTitle(name); title != "" {
		return title
	}
	return b.DefaultTitle()
}

func (s *session) canOffer(key string) bool {
	return s.im.deps.Prompter != nil && !s.policy.PromptOff(key)
}

// offer asks whether to replace current with suggestion. The default answer
// keeps current.
func (s *session) offer(ctx context.Context, key, what, current, suggestion string) (string, error) {
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" || suggestion == current || !s.canOffer(key) {
		return current, nil
	}
	s.logger.Info("name suggestion",
		logging.String("current", current),
		logging.String("suggestion", suggestion),
		logging.String(logging.FieldEventType, key),
	)
	apply, err := s.im.deps.Prompter.Confirm(ctx, fmt.Sprintf("Apply suggested %s %q instead of %q?", what, suggestion, current), false)
	if err != nil {
		return "", err
	}
	if apply {
		return suggestion, nil
	}
	return current, nil
}

func (s *session) decideTitles(ctx context.Context) error {
	answered := s.rc.Answers.Source(s.src.Name)
	override := strings.TrimSpace(s.rc.Overrides.Title)
	if override != "" && len(s.picked) > 1 {
		logging.WarnWithContext(s.logger, "title override ignored for multi-book source", "title_override_ignored",
			logging.Int("books", len(s.picked)),
			logging.String(logging.FieldErrorHint, "give per-book titles in an answers file"),
			logging.String(logging.FieldImpact, "titles come from the manifest, prompts or defaults"),
		)
		override = ""
	}

	for _, p := range s.picked {
		label := p.book.Label
		bctx := services.WithBook(ctx, label)
		meta := s.prior.Meta(label)

		in := preflight.Inputs[string]{
			Default: s.defaultTitle(p.book),
			Prompt:  askFunc(s.im.deps.Prompter, "Title for "+label),
			Label:   label,
		}
		if override != "" {
			in.Override = preflight.Some(override)
		} else if title := strings.TrimSpace(answered.Book(label).Title); title != "" {
			in.Override = preflight.Some(title)
		}
		if s.useManifest && meta.Title != "" {
			in.Manifest = preflight.Some(meta.Title)
		}

		d, err := preflight.Resolve(bctx, s.policy, preflight.BookTitle, in)
		if err != nil {
			return err
		}
		title := strings.TrimSpace(d.Value)
		if d.Reason == preflight.ReasonPrompt || d.Reason == preflight.ReasonDefault {
			if title, err = s.offer(bctx, "normalize_book_title", "title", title, textutil.NormalizeName(title)); err != nil {
				return err
			}
			if s.im.deps.Lookup != nil && s.canOffer("normalize_book_title") {
				if suggestion, ok := s.im.deps.Lookup.SuggestTitle(bctx, s.author, title); ok {
					if title, err = s.offer(bctx, "normalize_book_title", "title", title, suggestion); err != nil {
						return err
					}
				}
			}
		}
		if title == "" {
			return services.Wrap(services.ErrValidation, "preflight", "book title", "title is required for "+label, nil)
		}

		p.title = title
		p.outTitle = title
		if s.useManifest && meta.OutTitle != "" {
			p.outTitle = meta.OutTitle
		}
		p.report.Title = p.outTitle
		if err := s.persist(manifest.Manifest{BookMeta: map[string]manifest.BookMeta{
			label: {Title: p.title, OutTitle: p.outTitle},
		}}); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) decideDestinations(ctx context.Context) error {
	primary := s.im.cfg.Paths.OutputDir
	if s.publish {
		primary = s.im.cfg.LibraryRoot()
	}
	resolver := destination.Resolver{Primary: primary, Secondary: s.im.cfg.Paths.OutputDir}
	answered := s.rc.Answers.Source(s.src.Name)

	for _, p := range s.picked {
		if p.skip {
			continue
		}
		label := p.book.Label
		bctx := services.WithBook(ctx, label)
		meta := s.prior.Meta(label)

		var target destination.Target
		if s.useManifest && meta.DestKind != "" {
			d, err := preflight.Resolve(bctx, s.policy, preflight.OverwriteDestination, preflight.Inputs[bool]{
				Manifest: preflight.Some(meta.Overwrite != nil && *meta.Overwrite),
				Label:    label,
			})
			if err != nil {
				return err
			}
			if target, err = resolver.ForKind(meta.DestKind, s.author, p.outTitle, d.Value); err != nil {
				return err
			}
			if !target.Overwrite {
				busy, err := fileutil.IsNonEmptyDir(target.Dir)
				if err != nil {
					return fmt.Errorf("inspect destination: %w", err)
				}
				if busy {
					return services.Wrap(services.ErrConflict, "preflight", "destination",
						"Conflict: output already exists and is not empty: "+target.Dir, nil)
				}
			}
		} else {
			dir, err := destination.ResolveOutput(primary, s.author, p.outTitle)
			if err != nil {
				return err
			}
			busy, err := resolver.Exists(s.author, p.outTitle)
			if err != nil {
				return err
			}
			overwrite := false
			if busy {
				in := preflight.Inputs[bool]{
					Override: optional(s.rc.Overrides.Overwrite),
					Prompt:   confirmFunc(s.im.deps.Prompter, fmt.Sprintf("Destination exists: %s. Overwrite?", dir)),
					Label:    label,
				}
				if !in.Override.OK {
					in.Override = optional(answered.Book(label).Overwrite)
				}
				d, err := preflight.Resolve(bctx, s.policy, preflight.OverwriteDestination, in)
				if err != nil {
					return err
				}
				overwrite = d.Value
			}
			if target, err = resolver.Arbitrate(s.author, p.outTitle, overwrite); err != nil {
				return err
			}
		}

		p.target = target
		p.report.Destination = target.Dir
		if err := s.persist(manifest.Manifest{BookMeta: map[string]manifest.BookMeta{
			label: {DestKind: target.Kind, OutTitle: p.outTitle, Overwrite: manifest.Bool(target.Overwrite)},
		}}); err != nil {
			return err
		}
	}
	return nil
}
