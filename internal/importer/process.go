package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiomason/internal/covers"
	"audiomason/internal/destination"
	"audiomason/internal/detect"
	"audiomason/internal/fileutil"
	"audiomason/internal/history"
	"audiomason/internal/inbox"
	"audiomason/internal/logging"
	"audiomason/internal/manifest"
	"audiomason/internal/media/ffprobe"
	"audiomason/internal/pipeline"
	"audiomason/internal/services"
	"audiomason/internal/tags"
	"audiomason/internal/textutil"
	"audiomason/internal/tracks"
)

// process handles every picked book of the source. No prompts happen here.
func (s *session) process(ctx context.Context) error {
	ctx = services.WithSource(ctx, s.src.Name)
	for i, p := range s.picked {
		bctx := services.WithBook(ctx, p.book.Label)
		logger := logging.WithContext(bctx, s.im.logger)
		if p.skip {
			p.report.Status = StatusSkipped
			logger.Info("book already processed; skipping", logging.String(logging.FieldEventType, "book_skipped"))
			continue
		}
		if s.rc.DryRun {
			if err := s.writeDryRun(p); err != nil {
				return err
			}
			p.report.Status = StatusPlanned
			continue
		}

		logger.Info("processing book",
			logging.Int("index", i+1),
			logging.Int("total", len(s.picked)),
			logging.String("destination", p.target.Dir),
			logging.String(logging.FieldEventType, "book_start"),
		)
		if err := s.processBook(bctx, p); err != nil {
			p.report.Status = StatusFailed
			return err
		}
	}
	return nil
}

func (s *session) processBook(ctx context.Context, p *bookPlan) error {
	logger := logging.WithContext(ctx, s.im.logger)
	plan := s.rc.Pipeline
	work := s.run.WorkDir(p.book.Label)
	if err := os.RemoveAll(work); err != nil {
		return fmt.Errorf("reset work dir: %w", err)
	}
	if err := os.MkdirAll(work, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	files, err := copyAudio(p.book.Root, work)
	if err != nil {
		return err
	}
	if plan.Has(pipeline.Convert) {
		if err := s.convert(ctx, work, files); err != nil {
			return err
		}
	}
	mp3s, err := listMP3(work)
	if err != nil {
		return err
	}
	if len(mp3s) == 0 {
		return services.Wrap(services.ErrValidation, "process", "convert", "no mp3 files to import after conversion", nil)
	}

	tagger := s.im.deps.Tags
	if tagger == nil {
		return services.Wrap(services.ErrConfiguration, "process", "tags", "no tag writer configured", nil)
	}
	if s.wipe {
		if err := wipePreservingCover(tagger, mp3s); err != nil {
			return err
		}
		logger.Info("wiped id3 tags", logging.Int("files", len(mp3s)))
	}

	var coverPath string
	for _, step := range plan {
		switch step {
		case pipeline.Rename:
			renamed, err := tracks.RenameSequential(work, mp3s)
			if err != nil {
				return fmt.Errorf("rename tracks: %w", err)
			}
			mp3s = renamed
		case pipeline.Tags:
			if err := tagger.WriteTags(mp3s, s.author, p.title, nil); err != nil {
				return fmt.Errorf("write tags: %w", err)
			}
		case pipeline.Cover:
			path, err := s.applyCover(ctx, p, work, mp3s)
			if err != nil {
				return err
			}
			coverPath = path
		}
	}

	if !plan.Has(pipeline.Publish) {
		p.report.Status = StatusStaged
		p.report.Destination = work
		logger.Info("publish step not configured; book left in stage",
			logging.String("work_dir", work),
			logging.String(logging.FieldEventType, "book_staged"),
		)
		return s.markProcessed(p)
	}

	deliver := append([]string{}, mp3s...)
	if coverPath != "" {
		deliver = append(deliver, coverPath)
	}
	published, err := destination.Publish(ctx, p.target, deliver)
	if err != nil {
		return err
	}
	if err := s.markProcessed(p); err != nil {
		return err
	}
	p.report.Status = StatusProcessed
	logger.Info("book published",
		logging.String("destination", p.target.Dir),
		logging.Int("files", len(published)),
		logging.Bool("overwrite", p.target.Overwrite),
		logging.String(logging.FieldEventType, "book_published"),
	)

	if s.im.deps.History != nil {
		if _, err := s.im.deps.History.Record(ctx, history.Entry{
			RunID:       s.rc.RunID,
			Fingerprint: s.fingerprint,
			Source:      s.src.Name,
			Label:       p.book.Label,
			Author:      s.author,
			Title:       p.outTitle,
			Destination: p.target.Dir,
		}); err != nil {
			logging.WarnWithContext(logger, "failed to record import history", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the history_db path"),
				logging.String(logging.FieldImpact, "history command will not list this book"),
			)
		}
	}
	if err := os.RemoveAll(work); err != nil {
		logger.Debug("work dir cleanup failed", logging.Error(err))
	}
	return nil
}

func (s *session) markProcessed(p *bookPlan) error {
	if _, err := s.run.Manifest.Update(func(m *manifest.Manifest) { m.MarkProcessed(p.book.Label) }); err != nil {
		return fmt.Errorf("record processed book: %w", err)
	}
	return nil
}

func copyAudio(root, work string) ([]string, error) {
	files, err := detect.AudioFiles(root)
	if err != nil {
		return nil, fmt.Errorf("list audio: %w", err)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "process", "copy", "no audio files to import in "+root, nil)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(work, filepath.Base(f))
		if err := fileutil.CopyFile(f, dst); err != nil {
			return nil, fmt.Errorf("copy %s: %w", filepath.Base(f), err)
		}
		out = append(out, dst)
	}
	return out, nil
}

// convert replaces every non-mp3 file in work with mp3 output. Containers
// with at least two chapters are split when the pipeline asks for it.
func (s *session) convert(ctx context.Context, work string, files []string) error {
	logger := logging.WithContext(ctx, s.im.logger)
	plan := s.rc.Pipeline
	for i, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if ext == ".mp3" {
			continue
		}
		if s.im.deps.Transcoder == nil {
			return services.Wrap(services.ErrConfiguration, "process", "convert", "no transcoder configured", nil)
		}

		var chapters []ffprobe.Chapter
		if detect.IsContainer(f) && plan.Has(pipeline.Chapters) && s.im.deps.Chapters != nil {
			found, err := s.im.deps.Chapters.Chapters(ctx, f)
			if err != nil {
				return err
			}
			chapters = found
		}

		if len(chapters) >= 2 && plan.Has(pipeline.Split) {
			splitDir := filepath.Join(work, fmt.Sprintf(".split-%02d", i+1))
			parts, err := s.im.deps.Transcoder.SplitChapters(ctx, f, splitDir, chapters)
			if err != nil {
				return err
			}
			for j, part := range parts {
				dst := filepath.Join(work, fmt.Sprintf("%02d-%03d.mp3", i+1, j+1))
				if err := os.Rename(part, dst); err != nil {
					return fmt.Errorf("move chapter %d of %s: %w", j+1, filepath.Base(f), err)
				}
			}
			if err := os.RemoveAll(splitDir); err != nil {
				logger.Debug("split dir cleanup failed", logging.Error(err))
			}
			logger.Info("split container by chapters",
				logging.String("file", filepath.Base(f)),
				logging.Int("chapters", len(parts)),
			)
		} else {
			dst := mp3Name(f)
			if err := s.im.deps.Transcoder.Transcode(ctx, f, dst); err != nil {
				return err
			}
			logger.Info("converted to mp3", logging.String("file", filepath.Base(f)))
		}
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove converted source: %w", err)
		}
	}
	return nil
}

// mp3Name returns the mp3 path for src, avoiding an existing file.
func mp3Name(src string) string {
	ext := filepath.Ext(src)
	stem := strings.TrimSuffix(src, ext)
	dst := stem + ".mp3"
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		return dst
	}
	return stem + "-" + strings.TrimPrefix(strings.ToLower(ext), ".") + ".mp3"
}

func listMP3(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list work dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return tracks.Sort(files), nil
}

// wipePreservingCover strips tags and puts back the picture the first file
// carried, since it may be the chosen cover.
func wipePreservingCover(tagger TagWriter, mp3s []string) error {
	var keep *tags.Cover
	if data, mime, err := tagger.ReadEmbeddedCover(mp3s[0]); err == nil && len(data) > 0 {
		keep = &tags.Cover{Data: data, MIME: mime}
	}
	if err := tagger.WipeTags(mp3s); err != nil {
		return fmt.Errorf("wipe tags: %w", err)
	}
	if keep != nil {
		_ = tagger.WriteCover(mp3s, keep)
	}
	return nil
}

func (s *session) applyCover(ctx context.Context, p *bookPlan, work string, mp3s []string) (string, error) {
	logger := logging.WithContext(ctx, s.im.logger)
	img, err := s.im.covers.Resolve(ctx, p.candidates, p.cover, filepath.Join(work, ".cover"))
	if err != nil {
		return "", err
	}
	if img == nil {
		logger.Info("no cover for book", logging.String("cover", p.cover.String()))
		return "", nil
	}
	info, err := covers.Describe(img.Data)
	if err != nil {
		logging.WarnWithContext(logger, "cover image is not decodable; skipping cover", "cover_invalid",
			logging.String("origin", string(img.Origin)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "replace the cover with a JPEG or PNG"),
			logging.String(logging.FieldImpact, "book imported without a cover"),
		)
		return "", nil
	}
	path, err := covers.Save(work, img)
	if err != nil {
		return "", err
	}
	if err := s.im.deps.Tags.WriteCover(mp3s, &tags.Cover{Data: img.Data, MIME: img.MIME}); err != nil {
		return "", fmt.Errorf("embed cover: %w", err)
	}
	logger.Info("cover applied",
		logging.String("origin", string(img.Origin)),
		logging.String("image", info.String()),
	)
	return path, nil
}

// writeDryRun records the planned actions for a book next to the manifest.
func (s *session) writeDryRun(p *bookPlan) error {
	cover := p.report.Cover
	if plan, err := s.im.covers.Plan(p.candidates, p.cover); err == nil {
		cover = plan.String()
		if plan.Origin == covers.OriginURL && s.im.deps.Cache != nil {
			_, cached := s.im.deps.Cache.Lookup(plan.Path)
			cover = fmt.Sprintf("%s (cache: %s, cached: %t)", cover, s.im.deps.Cache.PlannedPath(plan.Path), cached)
		}
	}
	lines := []string{
		"AudioMason dry-run summary",
		"",
		"Source: " + s.src.Name,
		"Book: " + p.book.Label,
		"Author: " + s.author,
		"Title: " + p.outTitle,
		"Destination root: " + filepath.Dir(filepath.Dir(p.target.Dir)),
		"Destination dir: " + p.target.Dir,
		fmt.Sprintf("Overwrite: %t", p.target.Overwrite),
		"Cover mode: " + p.cover.String(),
		"Cover source: " + cover,
		fmt.Sprintf("Wipe ID3: %t", s.wipe),
		fmt.Sprintf("Publish: %t", s.publish),
		"Pipeline steps: " + pipelineString(s.rc.Pipeline),
	}
	name := textutil.SanitizeFileName(s.author+" - "+p.outTitle) + ".dryrun.txt"
	path := filepath.Join(s.run.Dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write dry-run summary: %w", err)
	}
	s.logger.Info("dry-run summary written",
		logging.String("path", path),
		logging.String(logging.FieldBook, p.book.Label),
		logging.String(logging.FieldEventType, "dry_run_summary"),
	)
	return nil
}

// finalize runs the end-of-source bookkeeping. Failures are logged, never
// returned.
func (s *session) finalize(ctx context.Context, cleanInbox bool) {
	ctx = services.WithSource(ctx, s.src.Name)
	logger := logging.WithContext(ctx, s.im.logger)
	if s.rc.DryRun {
		logger.Info("dry run: skipping finalize",
			logging.Bool("would_clean_inbox", cleanInbox),
			logging.Bool("would_clean_stage", s.cleanStage),
			logging.String(logging.FieldEventType, "finalize_skipped"),
		)
		return
	}

	inboxDir := s.im.cfg.Paths.InboxDir
	if added, err := inbox.AddIgnore(inboxDir, s.src.Name); err != nil {
		logging.WarnWithContext(logger, "failed to add source to ignore list", "ignore_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check inbox permissions"),
			logging.String(logging.FieldImpact, "source will be offered again"),
		)
	} else if added {
		logger.Info("source added to ignore list", logging.String(logging.FieldEventType, "ignore_added"))
	}

	if cleanInbox {
		if err := os.RemoveAll(s.src.Path); err != nil {
			logging.WarnWithContext(logger, "failed to clean inbox source", "inbox_clean_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the source manually"),
				logging.String(logging.FieldImpact, "inbox keeps the imported source"),
			)
		} else {
			logger.Info("inbox source removed", logging.String("path", s.src.Path))
		}
	}

	if s.cleanStage {
		if err := s.run.Remove(); err != nil {
			logging.WarnWithContext(logger, "failed to clean stage", "stage_clean_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'audiomason staging clean'"),
				logging.String(logging.FieldImpact, "stage directory left on disk"),
			)
		} else {
			logger.Info("stage removed", logging.String("stage", s.run.Dir))
		}
	}
}
