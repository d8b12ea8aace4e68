package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picgaz/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent plan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded yet")
					return nil
				}
				color := shouldColorize(out)
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.Plan,
						run.StartState,
						outcomeLabel(run.Outcome, color),
						strconv.Itoa(run.Added),
						strconv.Itoa(run.Duplicates),
						strconv.Itoa(run.Rejected),
						strconv.Itoa(run.Quarantined),
						run.Duration().Round(10 * time.Millisecond).String(),
						humanize.Time(run.StartedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Plan", "Start", "Outcome", "Added", "Duplicates", "Rejected", "Quarantined", "Took", "Age"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				for _, run := range runs {
					if run.Error != "" {
						fmt.Fprintf(out, "%s %s: %s\n", run.RunID, run.Plan, run.Error)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
