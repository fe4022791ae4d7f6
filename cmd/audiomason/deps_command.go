package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiomason/internal/readiness"
	"audiomason/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools, directory access, and the lookup service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := readiness.RunAll(cmd.Context(), cfg)
			failed := readiness.Failed(results)

			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{"checks": results, "ok": len(failed) == 0}); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					switch {
					case !r.Passed && r.Optional:
						status = "missing (optional)"
					case !r.Passed:
						status = "FAILED"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			}
			if len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "deps", "check", fmt.Sprintf("%d required check(s) failed", len(failed)), nil)
			}
			return nil
		},
	}
}
