package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recorder2rc/internal/staging"
)

func newWorkCommand(ctx *commandContext) *cobra.Command {
	workCmd := &cobra.Command{
		Use:   "work",
		Short: "Inspect and clean run directories under paths.work_dir",
	}
	workCmd.AddCommand(newWorkListCommand(ctx))
	workCmd.AddCommand(newWorkCleanCommand(ctx))
	return workCmd
}

func newWorkListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List run directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return fmt.Errorf("list run directories: %w", err)
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
					"work_dir":         cfg.Paths.WorkDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No run directories found")
				return nil
			}
			fmt.Fprintf(out, "Work directory: %s\n\n", cfg.Paths.WorkDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Second)
				rows = append(rows, []string{shortID(dir.RunID), formatDuration(age), humanize.Bytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, tableSpec{
				Headers: []string{"Run", "Age", "Size"},
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight},
				Rows:    rows,
				Footer:  []string{fmt.Sprintf("%d", len(dirs)), "", humanize.Bytes(uint64(totalSize))},
			}.render())
			return nil
		},
	}
}

func newWorkCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale run directories",
		Long: `Remove run directories left behind by interrupted conversions.

Only directories named run-<id> older than --older-than are removed. Use
--older-than 0 to remove every run directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"removed": len(result.Removed),
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			switch {
			case len(result.Removed) == 0 && len(result.Errors) == 0:
				fmt.Fprintln(out, "No stale run directories to clean")
			case len(result.Errors) > 0:
				fmt.Fprintf(out, "Removed %d run directories, %d errors\n", len(result.Removed), len(result.Errors))
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
				}
			default:
				fmt.Fprintf(out, "Removed %d run directories\n", len(result.Removed))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "older-than", staging.DefaultMaxAge, "Minimum age of directories to remove")
	return cmd
}
