package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picgaz/internal/history"
	"picgaz/internal/repair"
	"picgaz/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var planName string
	var confirm string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run configured plans in order",
		Long: `Run verifies each destination, rebuilds a missing manifest after
confirmation, and ingests new images from the source. Plans run in the order
they appear in the configuration; the first failing plan stops the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			plans, err := ctx.selectPlans(planName)
			if err != nil {
				return err
			}

			var confirmer repair.Confirmer = repair.PromptConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
			if cmd.Flags().Changed("confirm") {
				confirmer = repair.StaticConfirmer(confirm)
			}

			return ctx.withHistory(func(store *history.Store) error {
				r := runner.New(cfg, confirmer, logger, runner.WithHistory(store))
				reports, runErr := r.RunPlans(cmd.Context(), plans)
				out := cmd.OutOrStdout()
				printRunReports(out, reports, shouldColorize(out))
				return runErr
			})
		},
	}

	cmd.Flags().StringVarP(&planName, "plan", "p", "", "Run only the named plan")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Answer the rebuild confirmation prompt non-interactively")
	return cmd
}

func printRunReports(out io.Writer, reports []runner.Report, color bool) {
	if len(reports) == 0 {
		return
	}
	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		rows = append(rows, []string{
			report.Plan.Name,
			startLabel(report, color),
			outcomeLabel(report.Outcome, color),
			strconv.Itoa(report.Ingest.Added),
			strconv.Itoa(report.Ingest.Duplicates),
			strconv.Itoa(report.Ingest.Rejected),
			strconv.Itoa(report.Rebuild.Quarantined),
			humanize.Bytes(uint64(max(report.Ingest.AddedBytes, 0))),
			strconv.Itoa(report.Entries),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Plan", "Start", "Outcome", "Added", "Duplicates", "Rejected", "Quarantined", "New data", "Entries"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	for _, report := range reports {
		if report.ManifestPath != "" {
			fmt.Fprintf(out, "%s: manifest %s\n", report.Plan.Name, report.ManifestPath)
		}
		if len(report.Rebuild.Moves) > 0 {
			var moved []string
			for _, move := range report.Rebuild.Moves {
				if move.Reason != "rename" {
					moved = append(moved, fmt.Sprintf("%s (%s)", move.From, move.Reason))
				}
			}
			if len(moved) > 0 {
				fmt.Fprintf(out, "%s: quarantined %s\n", report.Plan.Name, strings.Join(moved, ", "))
			}
		}
	}
}

func startLabel(report runner.Report, color bool) string {
	if report.Verification.Dir == "" {
		return colorize(report.StartLabel(), ansiRed, color)
	}
	return stateLabel(report.StartState, color)
}
