package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picgaz/internal/history"
	"picgaz/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show each plan's destination state and last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			plans, err := ctx.selectPlans("")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			var recent []history.Run
			if err := ctx.withHistory(func(store *history.Store) error {
				recent, err = store.Recent(cmd.Context(), 200)
				return err
			}); err != nil {
				return err
			}
			lastRun := make(map[string]history.Run)
			for _, run := range recent {
				if _, seen := lastRun[run.Plan]; !seen {
					lastRun[run.Plan] = run
				}
			}

			rows := make([][]string, 0, len(plans))
			for _, plan := range plans {
				state, err := inspectPlan(cfg, plan, logger)
				if err != nil {
					return fmt.Errorf("status %s: %w", plan.Name, err)
				}
				entries, stored := "-", "-"
				if m := state.verification.Manifest; m != nil {
					entries = strconv.Itoa(m.Len())
					stored = humanize.Bytes(uint64(max(m.TotalBytes(), 0)))
				}
				last := "never"
				if run, ok := lastRun[plan.Name]; ok {
					last = fmt.Sprintf("%s (%s)", humanize.Time(run.StartedAt), outcomeLabel(run.Outcome, color))
				}
				rows = append(rows, []string{
					plan.Name,
					plan.Destination,
					plan.HashAlgorithm,
					stateLabel(state.verification.State, color),
					entries,
					stored,
					last,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Plan", "Destination", "Algorithm", "State", "Entries", "Stored", "Last run"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))

			checks := []preflight.Result{preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir)}
			for _, plan := range plans {
				checks = append(checks, preflight.CheckReadableDirectory(plan.Name+" source", plan.Source))
			}
			for _, check := range checks {
				label := colorize("OK", ansiGreen, color)
				if !check.Passed {
					label = colorize("ERROR", ansiRed, color)
				}
				fmt.Fprintf(out, "  %-24s [%s] %s\n", check.Name+":", label, check.Detail)
			}
			return nil
		},
	}
}
