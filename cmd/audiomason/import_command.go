package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiomason/internal/answers"
	"audiomason/internal/archive"
	"audiomason/internal/config"
	"audiomason/internal/covers"
	"audiomason/internal/history"
	"audiomason/internal/importer"
	"audiomason/internal/logging"
	"audiomason/internal/lookup"
	"audiomason/internal/media/ffmpeg"
	"audiomason/internal/media/ffprobe"
	"audiomason/internal/media/mp4probe"
	"audiomason/internal/services"
	"audiomason/internal/tags"
)

const lockFileName = ".audiomason.lock"

type importFlags struct {
	sources    []string
	all        bool
	books      []string
	author     string
	title      string
	cover      string
	cleanInbox string
	answers    string
	dryRun     bool
	yes        bool
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import [source...]",
		Short: "Import sources from the inbox",
		Long: `Import one or more inbox sources into the library.

Every decision (books, author, titles, cover, destination) is settled and
recorded in the stage manifest before any book is processed. Flags answer
decisions up front; unanswered decisions are asked interactively, or take
their defaults with --yes or when stdin is not a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			ans, err := answers.Load(flags.answers)
			if err != nil {
				return err
			}
			overrides := importer.Overrides{
				Sources:       append(args, flags.sources...),
				AllSources:    flags.all,
				Books:         flags.books,
				ReuseStage:    optionalBool(cmd, "reuse-stage"),
				UseManifest:   optionalBool(cmd, "use-manifest"),
				SkipProcessed: optionalBool(cmd, "skip-processed"),
				Publish:       optionalBool(cmd, "publish"),
				WipeID3:       optionalBool(cmd, "wipe-id3"),
				CleanStage:    optionalBool(cmd, "clean-stage"),
				CleanInbox:    flags.cleanInbox,
				Author:        flags.author,
				Title:         flags.title,
				Cover:         flags.cover,
				Overwrite:     optionalBool(cmd, "overwrite"),
			}
			interactive := !flags.yes && stdinInteractive()
			rc, err := importer.NewRunContext(cfg, uuid.NewString(), interactive, flags.dryRun, overrides, ans)
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.StageDir, lockFileName))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire import lock: %w", err)
			}
			if !locked {
				return services.Wrap(services.ErrConflict, "import", "lock", "another audiomason import is running on "+cfg.Paths.StageDir, nil)
			}
			defer lock.Unlock()

			deps, closeDeps, err := buildDependencies(cfg, logger, interactive, cmd)
			if err != nil {
				return err
			}
			defer closeDeps()

			started := time.Now()
			report, runErr := importer.New(cfg, deps, logger).Run(cmd.Context(), rc)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printImportReport(cmd, report, time.Since(started), rc.DryRun)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.sources, "source", nil, "Inbox source to import (repeatable)")
	f.BoolVar(&flags.all, "all", false, "Import every inbox source")
	f.StringSliceVar(&flags.books, "book", nil, "Book label to import, or \"all\" (repeatable)")
	f.StringVar(&flags.author, "author", "", "Author for every book of the source")
	f.StringVar(&flags.title, "title", "", "Title (single-book sources only)")
	f.StringVar(&flags.cover, "cover", "", "Cover: file, embedded, skip, an image path, or a URL")
	f.StringVar(&flags.cleanInbox, "clean-inbox", "", "Remove imported sources from the inbox: ask, yes, or no")
	f.StringVar(&flags.answers, "answers", "", "YAML answers file with per-source and per-book decisions")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Decide and record everything, write summaries, change nothing else")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Never prompt; take defaults for unanswered decisions")
	f.Bool("publish", false, "Publish to the library root instead of the output root")
	f.Bool("wipe-id3", false, "Strip existing ID3 tags before tagging")
	f.Bool("clean-stage", false, "Remove the stage after a successful import")
	f.Bool("reuse-stage", false, "Reuse an existing stage when the source is unchanged")
	f.Bool("use-manifest", false, "Reuse answers recorded in the stage manifest")
	f.Bool("skip-processed", false, "Skip books an earlier run already processed")
	f.Bool("overwrite", false, "Replace a non-empty destination")

	return cmd
}

// buildDependencies wires the external collaborators. The returned func
// releases them.
func buildDependencies(cfg *config.Config, logger *slog.Logger, interactive bool, cmd *cobra.Command) (importer.Dependencies, func(), error) {
	tool := ffmpeg.New(ffmpeg.Options{
		Binary:   cfg.FFmpegBinary(),
		LogLevel: cfg.FFmpeg.LogLevel,
		Quality:  cfg.FFmpeg.QA,
		Loudnorm: cfg.FFmpeg.Loudnorm,
	})
	deps := importer.Dependencies{
		Unpacker:   archive.New(),
		Transcoder: tool,
		Chapters:   ffprobe.Prober{Binary: cfg.FFprobeBinary()},
		Tags:       tags.Library{},
		Extractor:  tool,
		Probe:      mp4probe.Prober{},
		Cache:      covers.NewCache(cfg.Cover.CacheDir, nil, logger),
	}
	if cfg.Lookup.Enabled {
		deps.Lookup = lookup.New(cfg.Lookup.BaseURL, time.Duration(cfg.Lookup.TimeoutSeconds)*time.Second, logger)
	}
	if interactive {
		deps.Prompter = newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	closeFn := func() {}
	if strings.TrimSpace(cfg.Paths.HistoryDB) != "" {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "import history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db"),
				logging.String(logging.FieldImpact, "this run is not recorded in history"),
			)
		} else {
			deps.History = store
			closeFn = func() { _ = store.Close() }
		}
	}
	return deps, closeFn, nil
}

func printImportReport(cmd *cobra.Command, report *importer.Report, elapsed time.Duration, dryRun bool) {
	out := cmd.OutOrStdout()
	if report == nil || len(report.Sources) == 0 {
		fmt.Fprintln(out, "Nothing to import")
		return
	}
	rows := make([][]string, 0)
	for _, src := range report.Sources {
		for _, b := range src.Books {
			rows = append(rows, []string{src.Name, b.Label, b.Author, b.Title, b.Cover, b.Destination, b.Status})
		}
	}
	fmt.Fprint(out, renderTable(
		[]string{"Source", "Book", "Author", "Title", "Cover", "Destination", "Status"},
		rows,
		nil,
	))
	fmt.Fprintf(out, "\n%d source(s), %d book(s), %d imported in %s\n",
		report.Totals.Sources, report.Totals.Books, report.Totals.Processed, elapsed.Truncate(time.Millisecond))
	if dryRun {
		for _, src := range report.Sources {
			fmt.Fprintf(out, "Dry run: summaries written to %s\n", src.Stage)
		}
	}
}
