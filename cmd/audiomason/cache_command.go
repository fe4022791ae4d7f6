package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audiomason/internal/covers"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the downloaded cover cache",
	}
	cacheCmd.AddCommand(newCacheGCCommand(ctx))
	return cacheCmd
}

func newCacheGCCommand(ctx *commandContext) *cobra.Command {
	var maxAgeDays int
	var maxMB int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Prune old cover cache entries and trim the cache to its size limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-age-days") {
				maxAgeDays = cfg.Cover.GCMaxAgeDays
			}
			if !cmd.Flags().Changed("max-mb") {
				maxMB = cfg.Cover.GCMaxMB
			}

			result, err := covers.GC(cmd.Context(), cfg.Cover.CacheDir, maxAgeDays, maxMB, dryRun, logger)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				if result.Removed == nil {
					result.Removed = []string{}
				}
				return writeJSON(cmd, map[string]any{
					"cache_dir": cfg.Cover.CacheDir,
					"dry_run":   dryRun,
					"result":    result,
				})
			}

			out := cmd.OutOrStdout()
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			fmt.Fprintf(out, "%s %d cover(s), freeing %s\n", verb, len(result.Removed), humanize.Bytes(uint64(result.FreedBytes)))
			fmt.Fprintf(out, "Kept %d cover(s), %s in %s\n", result.Kept, humanize.Bytes(uint64(result.KeptBytes)), cfg.Cover.CacheDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Remove entries older than this many days (default from config)")
	cmd.Flags().IntVar(&maxMB, "max-mb", 0, "Trim the cache to this many megabytes (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	return cmd
}
