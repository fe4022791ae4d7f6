package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"audiomason/internal/inbox"
	"audiomason/internal/services"
	"audiomason/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage stage directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stage directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stageDir := cfg.Paths.StageDir
			dirs, err := staging.ListDirectories(stageDir)
			if err != nil {
				return fmt.Errorf("list stage directories: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}
			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"stage_dir":        stageDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No stage directories found")
				return nil
			}
			fmt.Fprintf(out, "Stage directory: %s\n\n", stageDir)

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{
					dir.Name,
					dir.Source,
					strconv.Itoa(dir.Books),
					strconv.Itoa(dir.Processed),
					formatDuration(age),
					humanize.Bytes(uint64(dir.Size)),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Stage", "Source", "Books", "Processed", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanize.Bytes(uint64(totalSize)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var orphaned bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale or orphaned stage directories",
		Long: `Remove stage directories.

By default, removes runs not modified within --older-than. With --orphaned,
removes runs whose source is no longer in the inbox instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.StageDir, lockFileName))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire stage lock: %w", err)
			}
			if !locked {
				return services.Wrap(services.ErrConflict, "staging", "lock", "an import is running on "+cfg.Paths.StageDir, nil)
			}
			defer lock.Unlock()

			var result staging.CleanResult
			label := "stale"
			if orphaned {
				label = "orphaned"
				sources, err := inbox.List(cfg.Paths.InboxDir)
				if err != nil {
					return fmt.Errorf("list inbox: %w", err)
				}
				active := make(map[string]struct{}, len(sources))
				for _, src := range sources {
					active[filepath.Base(staging.RunDir(cfg.Paths.StageDir, src.Name))] = struct{}{}
				}
				result = staging.CleanOrphaned(cmd.Context(), cfg.Paths.StageDir, active, dryRun, logger)
			} else {
				result = staging.CleanStale(cmd.Context(), cfg.Paths.StageDir, olderThan, dryRun, logger)
			}

			if ctx.JSONMode() {
				return writeStagingCleanJSON(cmd, result, dryRun)
			}
			return printStagingCleanResult(cmd, result, label, dryRun)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Remove runs not modified for this long")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Remove runs whose source is no longer in the inbox")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed without deleting")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanResult, label string, dryRun bool) error {
	out := cmd.OutOrStdout()
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	fmt.Fprintf(out, "%s %d %s directories", verb, len(result.Removed), label)
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(out)
	for _, path := range result.Removed {
		fmt.Fprintf(out, "  %s\n", path)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanResult, dryRun bool) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	return writeJSON(cmd, map[string]any{
		"dry_run": dryRun,
		"removed": removed,
		"errors":  errs,
	})
}
