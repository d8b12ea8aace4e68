package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"picgaz/internal/config"
	"picgaz/internal/contenthash"
	"picgaz/internal/manifest"
	"picgaz/internal/runner"
)

// planState is a read-only view of one plan's destination.
type planState struct {
	plan         config.Plan
	exists       bool
	verification manifest.Verification
}

func (p planState) detail() string {
	switch {
	case !p.exists:
		return "destination does not exist yet"
	case p.verification.State == manifest.StateCorrupt:
		return p.verification.Reason
	case p.verification.State == manifest.StateAmbiguous:
		return fmt.Sprintf("%d manifest candidates", len(p.verification.Candidates))
	case p.verification.State == manifest.StateMissing:
		return fmt.Sprintf("%d files without manifest", p.verification.FileCount)
	default:
		return p.verification.Path
	}
}

func inspectPlan(cfg *config.Config, plan config.Plan, logger *slog.Logger) (planState, error) {
	state := planState{plan: plan, verification: manifest.Verification{Dir: plan.Destination}}
	if _, err := os.Stat(plan.Destination); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, err
	}
	state.exists = true
	hasher, err := contenthash.New(plan.HashAlgorithm, cfg.Engine.HashBufferBytes)
	if err != nil {
		return state, err
	}
	store := manifest.NewStore(hasher, runner.Layout(cfg), logger)
	v, err := store.Verify(plan.Destination)
	if err != nil {
		return state, err
	}
	state.verification = v
	return state, nil
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var planName string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check destination manifests without modifying anything",
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

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			var states []planState
			for _, plan := range plans {
				state, err := inspectPlan(cfg, plan, logger)
				if err != nil {
					return fmt.Errorf("verify %s: %w", plan.Name, err)
				}
				states = append(states, state)
			}

			rows := make([][]string, 0, len(states))
			failed := 0
			for _, s := range states {
				entries := "-"
				if s.verification.Manifest != nil {
					entries = strconv.Itoa(s.verification.Manifest.Len())
				}
				rows = append(rows, []string{
					s.plan.Name,
					s.plan.Destination,
					stateLabel(s.verification.State, color),
					entries,
					s.detail(),
				})
				if s.verification.State != manifest.StateValid {
					failed++
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Plan", "Destination", "State", "Entries", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			for _, s := range states {
				if s.verification.State != manifest.StateAmbiguous {
					continue
				}
				fmt.Fprintf(out, "%s candidates:\n", s.plan.Name)
				for _, candidate := range s.verification.Candidates {
					fmt.Fprintf(out, "  %s\n", candidate)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d destinations are not valid", failed, len(states))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&planName, "plan", "p", "", "Verify only the named plan")
	return cmd
}
