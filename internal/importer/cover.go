package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiomason/internal/covers"
	"audiomason/internal/detect"
	"audiomason/internal/logging"
	"audiomason/internal/manifest"
	"audiomason/internal/preflight"
	"audiomason/internal/services"
	"audiomason/internal/tracks"
)

func (s *session) decideCovers(ctx context.Context) error {
	answered := s.rc.Answers.Source(s.src.Name)
	for _, p := range s.picked {
		label := p.book.Label
		bctx := services.WithBook(ctx, label)
		p.candidates = s.im.covers.Candidates(p.book.Root, p.book.StageRoot, firstAudio(p.book.Root), p.book.ContainerHint)
		c := p.candidates

		in := preflight.Inputs[covers.Choice]{Label: label}
		switch {
		case c.Conflict():
			in.Default = covers.File(c.File)
			in.Prompt = s.promptCoverChoice(c)
		case c.File != "":
			in.Default = covers.File(c.File)
		case c.Embedded != nil:
			in.Default = covers.Embedded()
		case c.Container != "":
			// Undecided lets the resolver extract from the container.
		default:
			in.Default = covers.Skip()
			in.Prompt = s.promptCoverInput()
		}

		if raw := strings.TrimSpace(s.rc.Overrides.Cover); raw != "" {
			choice, err := coverOverride(raw, c)
			if err != nil {
				return services.Wrap(services.ErrValidation, "preflight", "cover", label, err)
			}
			in.Override = preflight.Some(choice)
		} else if choice, ok := answered.Book(label).CoverChoice(); ok {
			in.Override = preflight.Some(choice)
		}
		if meta := s.prior.Meta(label); s.useManifest && !meta.Cover.IsZero() {
			in.Manifest = preflight.Some(meta.Cover)
		}

		d, err := preflight.Resolve(bctx, s.policy, preflight.Cover, in)
		if err != nil {
			return err
		}
		plan, err := s.im.covers.Plan(c, d.Value)
		if err != nil {
			return err
		}
		p.cover = d.Value
		p.report.Cover = plan.String()
		if err := s.persist(manifest.Manifest{BookMeta: map[string]manifest.BookMeta{
			label: {Cover: d.Value},
		}}); err != nil {
			return err
		}
	}
	return nil
}

// firstAudio returns the first audio file of dir in track order.
func firstAudio(dir string) string {
	files, err := detect.AudioFiles(dir)
	if err != nil || len(files) == 0 {
		return ""
	}
	return tracks.Sort(files)[0]
}

// coverOverride maps a --cover value onto a choice. "file" selects the cover
// file found next to the book.
func coverOverride(raw string, c covers.Candidates) (covers.Choice, error) {
	switch strings.ToLower(raw) {
	case string(covers.ModeFile):
		if c.File == "" {
			return covers.Choice{}, fmt.Errorf("cover mode file requested but no cover file was found")
		}
		return covers.File(c.File), nil
	case string(covers.ModeEmbedded):
		return covers.Embedded(), nil
	case string(covers.ModeSkip):
		return covers.Skip(), nil
	}
	if strings.HasPrefix(raw, "file:") {
		return covers.ParseChoice(raw)
	}
	if covers.IsURL(raw) {
		return covers.File(raw), nil
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return covers.Choice{}, err
	}
	return covers.File(abs), nil
}

func (s *session) promptCoverChoice(c covers.Candidates) func(context.Context, covers.Choice) (covers.Choice, error) {
	prompter := s.im.deps.Prompter
	if prompter == nil {
		return nil
	}
	return func(ctx context.Context, def covers.Choice) (covers.Choice, error) {
		if s.policy.PromptOff("choose_cover") {
			return def, nil
		}
		question := fmt.Sprintf("Cover sources:\n  1) file %s\n  2) embedded (%s)\n  3) skip\nChoose cover", c.File, c.Embedded.MIME)
		answer, err := prompter.Ask(ctx, question, "1")
		if err != nil {
			return covers.Choice{}, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "1", "file":
			return covers.File(c.File), nil
		case "2", "embedded":
			return covers.Embedded(), nil
		case "3", "skip":
			return covers.Skip(), nil
		default:
			return covers.Choice{}, services.Wrap(services.ErrValidation, "preflight", "cover", "invalid cover selection: "+answer, nil)
		}
	}
}

func (s *session) promptCoverInput() func(context.Context, covers.Choice) (covers.Choice, error) {
	prompter := s.im.deps.Prompter
	if prompter == nil {
		return nil
	}
	return func(ctx context.Context, def covers.Choice) (covers.Choice, error) {
		if s.policy.PromptOff("cover_input") {
			return def, nil
		}
		answer, err := prompter.Ask(ctx, "No cover found. Cover image path or URL (empty to skip)", "")
		if err != nil {
			return covers.Choice{}, err
		}
		answer = strings.TrimSpace(answer)
		switch {
		case answer == "":
			return covers.Skip(), nil
		case covers.IsURL(answer):
			return covers.File(answer), nil
		}
		abs, err := filepath.Abs(answer)
		if err == nil {
			if info, statErr := os.Stat(abs); statErr == nil && info.Mode().IsRegular() {
				return covers.File(abs), nil
			}
		}
		logging.WarnWithContext(s.logger, "cover path not found; skipping cover", "cover_input_missing",
			logging.String("path", answer),
			logging.String(logging.FieldErrorHint, "give an existing image file or an http(s) URL"),
			logging.String(logging.FieldImpact, "book imported without a cover"),
		)
		return covers.Skip(), nil
	}
}
