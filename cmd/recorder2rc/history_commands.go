package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recorder2rc/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past conversions",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent conversion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if store == nil {
					return errHistoryDisabled
				}
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.StartedAt),
						projectLabel(run),
						string(run.Status),
						formatRunDuration(run),
					})
				}
				fmt.Fprint(out, tableSpec{
					Headers: []string{"Run", "Started", "Project", "Status", "Took"},
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					Rows:    rows,
				}.render())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one conversion run and its chapter outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if store == nil {
					return errHistoryDisabled
				}
				run, err := store.FindRunByPrefix(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				chapters, err := store.ChaptersForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if chapters == nil {
						chapters = []history.ChapterRecord{}
					}
					return writeJSON(cmd, map[string]any{"run": run, "chapters": chapters})
				}
				printRun(cmd.OutOrStdout(), run, chapters)
				return nil
			})
		},
	}
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count runs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if store == nil {
					return errHistoryDisabled
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				statuses := make([]string, 0, len(stats))
				for status := range stats {
					statuses = append(statuses, string(status))
				}
				slices.Sort(statuses)
				rows := make([][]string, 0, len(statuses))
				total := 0
				for _, status := range statuses {
					count := stats[history.Status(status)]
					total += count
					rows = append(rows, []string{status, fmt.Sprintf("%d", count)})
				}
				fmt.Fprint(cmd.OutOrStdout(), tableSpec{
					Headers: []string{"Status", "Runs"},
					Aligns:  []columnAlignment{alignLeft, alignRight},
					Rows:    rows,
					Footer:  []string{"total", fmt.Sprintf("%d", total)},
				}.render())
				return nil
			})
		},
	}
}

func printRun(out io.Writer, run *history.Run, chapters []history.ChapterRecord) {
	status := newStatusPrinter(out)
	status.section("Run "+run.ID)
	kind := statusInfo
	switch run.Status {
	case history.StatusCompleted:
		kind = statusOK
	case history.StatusFailed, history.StatusRejected:
		kind = statusError
	}
	status.line("Status", kind, string(run.Status))
	status.line("Project", statusInfo, projectLabel(*run))
	status.line("Input", statusInfo, run.InputPath)
	if run.OutputPath != "" {
		status.line("Container", statusInfo, run.OutputPath)
	}
	status.line("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		status.line("Took", statusInfo, formatRunDuration(*run))
	}
	if run.ErrorMessage != "" {
		status.line("Error", statusError, run.ErrorMessage)
	}
	if len(chapters) == 0 {
		return
	}

	rows := make([][]string, 0, len(chapters))
	for _, ch := range chapters {
		rows = append(rows, []string{
			fmt.Sprintf("%d", ch.Chapter),
			fmt.Sprintf("%d", ch.SelectedTakes),
			fmt.Sprintf("%d/%d", ch.VerseFiles, ch.RequiredVerses),
			yesNo(ch.Retained),
			ch.Reason,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, tableSpec{
		Headers: []string{"Chapter", "Takes", "Verses", "Retained", "Reason"},
		Aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
		Rows:    rows,
	}.render())
}

func projectLabel(run history.Run) string {
	if run.Book == "" {
		return "-"
	}
	parts := []string{run.Language, strings.ToUpper(run.Book)}
	if run.Mode != "" {
		parts = append(parts, "("+run.Mode+")")
	}
	return strings.Join(parts, " ")
}

func formatRunDuration(run history.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}
