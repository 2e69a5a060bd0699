package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recorder2rc/internal/versification"
)

func newVersificationCommand(ctx *commandContext) *cobra.Command {
	versCmd := &cobra.Command{
		Use:     "versification",
		Aliases: []string{"vrs"},
		Short:   "Inspect the verse table used for completeness checks",
	}
	versCmd.AddCommand(newVersificationBooksCommand(ctx))
	versCmd.AddCommand(newVersificationShowCommand(ctx))
	return versCmd
}

func (c *commandContext) versificationTable() (*versification.Table, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return versification.FromConfig(cfg.Conversion)
}

func newVersificationBooksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the books of the verse table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ctx.versificationTable()
			if err != nil {
				return err
			}
			books := table.Books()
			if ctx.JSONMode() {
				counts := make(map[string]int, len(books))
				for _, book := range books {
					counts[book], _ = table.ChapterCount(book)
				}
				return writeJSON(cmd, map[string]any{"versification": table.Name(), "chapters": counts})
			}
			rows := make([][]string, 0, len(books))
			for _, book := range books {
				n, _ := table.ChapterCount(book)
				rows = append(rows, []string{book, strconv.Itoa(n)})
			}
			fmt.Fprint(cmd.OutOrStdout(), tableSpec{
				Title:   table.Name(),
				Headers: []string{"Book", "Chapters"},
				Aligns:  []columnAlignment{alignLeft, alignRight},
				Rows:    rows,
			}.render())
			return nil
		},
	}
}

func newVersificationShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book> [chapter]",
		Short: "Show verse counts for a book or one chapter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ctx.versificationTable()
			if err != nil {
				return err
			}
			book := strings.TrimSpace(args[0])
			chapters, err := table.ChapterCount(book)
			if err != nil {
				return err
			}

			first, last := 1, chapters
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("chapter %q is not a number", args[1])
				}
				first, last = n, n
			}

			counts := make(map[int]int, last-first+1)
			rows := make([][]string, 0, last-first+1)
			total := 0
			for ch := first; ch <= last; ch++ {
				verses, err := table.VerseCount(book, ch)
				if err != nil {
					return err
				}
				counts[ch] = verses
				total += verses
				rows = append(rows, []string{strconv.Itoa(ch), strconv.Itoa(verses)})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"book": strings.ToUpper(book), "verses": counts})
			}
			fmt.Fprint(cmd.OutOrStdout(), tableSpec{
				Title:   strings.ToUpper(book),
				Headers: []string{"Chapter", "Verses"},
				Aligns:  []columnAlignment{alignRight, alignRight},
				Rows:    rows,
				Footer:  []string{"total", strconv.Itoa(total)},
			}.render())
			return nil
		},
	}
}
