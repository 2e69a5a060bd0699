package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recorder2rc/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [project.zip] [output-dir]",
		Short: "Run preflight checks without converting",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var results []preflight.Result
			if len(args) > 0 {
				outputDir := ""
				if len(args) > 1 {
					outputDir = args[1]
				}
				if strings.TrimSpace(outputDir) == "" {
					outputDir = parentDir(args[0])
				}
				results = preflight.RunAll(cfg, args[0], outputDir)
			} else {
				results = []preflight.Result{
					preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
					preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
					preflight.CheckVersification(cfg.Conversion),
				}
				if strings.TrimSpace(cfg.Paths.SourceDir) != "" {
					results = append(results, preflight.CheckSourceCatalog(cfg.Paths.SourceDir))
				}
			}

			failed := preflight.Failed(results)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{
					"passed": len(failed) == 0,
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				status := newStatusPrinter(cmd.OutOrStdout())
				status.section("Preflight")
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					status.line(r.Name, kind, r.Detail)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
