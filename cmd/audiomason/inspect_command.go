package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"audiomason/internal/covers"
	"audiomason/internal/detect"
	"audiomason/internal/fingerprint"
	"audiomason/internal/media/mp4probe"
	"audiomason/internal/services"
	"audiomason/internal/tags"
	"audiomason/internal/tracks"
)

type inspectBook struct {
	Label          string `json:"label"`
	AudioCount     int    `json:"audio_count"`
	ContainerHint  string `json:"container_hint,omitempty"`
	CoverFile      string `json:"cover_file,omitempty"`
	CoverImage     string `json:"cover_image,omitempty"`
	EmbeddedCover  bool   `json:"embedded_cover"`
	ContainerCover bool   `json:"container_cover"`
}

type inspectReport struct {
	Path        string        `json:"path"`
	Fingerprint string        `json:"fingerprint"`
	Kind        string        `json:"kind"`
	Books       []inspectBook `json:"books"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Report the books detected in a source without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			report, err := inspectSource(cmd, path)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:      %s\n", report.Path)
			fmt.Fprintf(out, "Fingerprint: %s\n", report.Fingerprint)
			if report.Kind != "dir" {
				fmt.Fprintln(out, "Archives are inspected after staging; run import --dry-run to detect their books")
				return nil
			}
			if len(report.Books) == 0 {
				fmt.Fprintln(out, "No audio found")
				return nil
			}
			rows := make([][]string, 0, len(report.Books))
			for _, b := range report.Books {
				rows = append(rows, []string{
					b.Label,
					strconv.Itoa(b.AudioCount),
					filepath.Base(b.ContainerHint),
					b.CoverImage,
					yesNo(b.EmbeddedCover),
					yesNo(b.ContainerCover),
				})
			}
			fmt.Fprint(out, "\n"+renderTable(
				[]string{"Book", "Files", "M4A/M4B", "Cover file", "Embedded", "In container"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func inspectSource(cmd *cobra.Command, path string) (inspectReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return inspectReport{}, services.Wrap(services.ErrNotFound, "inspect", "stat", path, err)
	}
	fp, err := fingerprint.Compute(cmd.Context(), path)
	if err != nil {
		return inspectReport{}, err
	}
	report := inspectReport{Path: path, Fingerprint: fp, Kind: "archive", Books: []inspectBook{}}
	if !info.IsDir() {
		return report, nil
	}
	report.Kind = "dir"

	books, err := detect.Detect(cmd.Context(), path)
	if err != nil {
		return inspectReport{}, err
	}
	for _, b := range books {
		row := inspectBook{Label: b.Label, AudioCount: b.AudioCount, ContainerHint: b.ContainerHint}
		if file, ok := covers.FindFileCover(b.Root, path); ok {
			row.CoverFile = file
			row.CoverImage = filepath.Base(file)
			if data, err := os.ReadFile(file); err == nil {
				if desc, err := covers.Describe(data); err == nil {
					row.CoverImage += " (" + desc.String() + ")"
				}
			}
		}
		if files, err := detect.AudioFiles(b.Root); err == nil && len(files) > 0 {
			if data, _, err := tags.ReadEmbeddedCover(tracks.Sort(files)[0]); err == nil && len(data) > 0 {
				row.EmbeddedCover = true
			}
		}
		if b.ContainerHint != "" {
			if probe, err := mp4probe.Probe(b.ContainerHint); err == nil {
				row.ContainerCover = probe.HasCover
			}
		}
		report.Books = append(report.Books, row)
	}
	return report, nil
}
