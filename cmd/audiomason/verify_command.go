package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"audiomason/internal/services"
	"audiomason/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [root]",
		Short: "Audit the library for missing covers, tags, and numbering gaps",
		Long: `Walk a library root and check every directory that contains mp3 files.

A book passes when it has cover.jpg or cover.png, every mp3 carries artist
and album tags, and files are named 01..NN. The library root defaults to the
configured archive_dir (or output_dir). The exit status is 2 when any problem
is found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.LibraryRoot()
			if len(args) == 1 {
				if root, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}

			result, err := verify.Library(cmd.Context(), root, nil)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "verify", "walk", root, err)
			}
			if ctx.JSONMode() {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printVerifyResult(cmd, result)
			}
			if !result.OK() {
				return services.Wrap(services.ErrValidation, "verify", "audit",
					fmt.Sprintf("%d problem(s) in %s", len(result.Problems), root), nil)
			}
			return nil
		},
	}
}

func printVerifyResult(cmd *cobra.Command, result verify.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Library: %s\n", result.Root)
	fmt.Fprintf(out, "Books checked: %d\n", result.Books)
	if result.OK() {
		fmt.Fprintln(out, "No problems found")
		return
	}
	rows := make([][]string, 0, len(result.Problems))
	for _, p := range result.Problems {
		dir, err := filepath.Rel(result.Root, p.Dir)
		if err != nil {
			dir = p.Dir
		}
		rows = append(rows, []string{dir, p.Kind, p.File, p.Detail})
	}
	fmt.Fprint(out, "\n"+renderTable([]string{"Directory", "Problem", "File", "Detail"}, rows, nil))
}
