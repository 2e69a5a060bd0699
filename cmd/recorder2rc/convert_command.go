package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recorder2rc/internal/history"
	"recorder2rc/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var cascade bool
	var keepWork bool
	var noAlternates bool

	cmd := &cobra.Command{
		Use:   "convert <project.zip> [output-dir]",
		Short: "Convert a recorder project archive into a resource container",
		Long: `Convert a recorder project archive into a resource container.

The container is written to <output-dir>/<project>_converted.zip. When no
output directory is given it is written next to the project archive.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cascade-discard") {
				cfg.Conversion.CascadeDiscard = cascade
			}
			if cmd.Flags().Changed("keep-work-dir") {
				cfg.Conversion.KeepWorkDir = keepWork
			}
			if noAlternates {
				cfg.Conversion.KeepAlternateTakes = false
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			outputDir := ""
			if len(args) > 1 {
				outputDir = args[1]
			}

			return ctx.withHistory(func(store *history.Store) error {
				var opts []workflow.Option
				if store != nil {
					opts = append(opts, workflow.WithHistory(store))
				}
				converter, err := workflow.New(cfg, logger, opts...)
				if err != nil {
					return err
				}
				report, runErr := converter.Convert(cmd.Context(), args[0], outputDir)
				if report == nil {
					return runErr
				}
				if ctx.JSONMode() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
					return runErr
				}
				printReport(cmd.OutOrStdout(), report, runErr)
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade-discard", false, "Remove verse files of chapters discarded as incomplete")
	cmd.Flags().BoolVar(&keepWork, "keep-work-dir", false, "Keep the run directory under paths.work_dir")
	cmd.Flags().BoolVar(&noAlternates, "no-alternates", false, "Do not copy unselected takes into the container")
	return cmd
}

func printReport(out io.Writer, report *workflow.Report, runErr error) {
	status := newStatusPrinter(out)
	status.section("Conversion")
	status.line("Run", statusInfo, report.RunID)
	if report.Book != "" {
		status.line("Project", statusInfo,
			fmt.Sprintf("%s %s (%s mode)", report.Language, strings.ToUpper(report.Book), report.Mode))
	}
	if report.Source != "" {
		status.line("Source", statusInfo, report.Source)
	}

	if len(report.Chapters) > 0 {
		rows := make([][]string, 0, len(report.Chapters))
		for _, ch := range report.Chapters {
			rows = append(rows, []string{
				fmt.Sprintf("%d", ch.Chapter),
				fmt.Sprintf("%d", ch.SelectedTakes),
				fmt.Sprintf("%d", ch.VerseFiles),
				chapterOutcome(ch),
				ch.Reason,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, tableSpec{
			Headers: []string{"Chapter", "Takes", "Verse files", "Outcome", "Reason"},
			Aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
			Rows:    rows,
			Footer: []string{"", "", fmt.Sprintf("%d", report.Artifacts),
				fmt.Sprintf("%d retained", report.Retained()), ""},
		}.render())
		fmt.Fprintln(out)
	}

	if runErr != nil {
		status.line("Result", statusError, runErr.Error())
		return
	}
	kind := statusOK
	if report.Retained() < len(report.Chapters)-report.Skipped() {
		kind = statusWarn
	}
	status.line("Container", kind, report.OutputPath)
	status.line("Elapsed", statusInfo, report.Duration().Round(time.Millisecond).String())
	if report.WorkDir != "" {
		status.line("Work dir", statusInfo, report.WorkDir)
	}
}

func chapterOutcome(ch workflow.ChapterReport) string {
	switch {
	case ch.Skipped:
		return "skipped"
	case ch.Retained:
		return "retained"
	default:
		return "discarded"
	}
}
