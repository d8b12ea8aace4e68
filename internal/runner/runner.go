package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"picgaz/internal/config"
	"picgaz/internal/contenthash"
	"picgaz/internal/dstlock"
	"picgaz/internal/evaluate"
	"picgaz/internal/history"
	"picgaz/internal/ingest"
	"picgaz/internal/inspect"
	"picgaz/internal/logging"
	"picgaz/internal/manifest"
	"picgaz/internal/preflight"
	"picgaz/internal/repair"
)

// Report describes one plan run.
type Report struct {
	RunID        string
	Plan         config.Plan
	StartState   manifest.State
	Verification manifest.Verification
	Outcome      history.Outcome
	Rebuilt      bool
	Rebuild      repair.Summary
	Ingest       ingest.Result
	StaleRemoved int
	ManifestPath string
	Entries      int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// StartLabel names the destination state found at the start of the run, or
// "unknown" when the run failed before verification.
func (r Report) StartLabel() string {
	if r.Verification.Dir == "" {
		return "unknown"
	}
	return r.StartState.String()
}

// Runner executes configured plans.
type Runner struct {
	cfg       *config.Config
	confirmer repair.Confirmer
	history   *history.Store
	inspector inspect.Inspector
	base      *slog.Logger
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithHistory journals every run to store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithInspector replaces the image inspector.
func WithInspector(inspector inspect.Inspector) Option {
	return func(r *Runner) { r.inspector = inspector }
}

// New returns a Runner. confirmer answers rebuild prompts.
func New(cfg *config.Config, confirmer repair.Confirmer, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		confirmer: confirmer,
		inspector: inspect.ImageInspector{},
		base:      logger,
		logger:    logging.NewComponentLogger(logger, "runner"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll runs every configured plan in order and stops at the first plan
// that fails.
func (r *Runner) RunAll(ctx context.Context) ([]Report, error) {
	return r.RunPlans(ctx, r.cfg.Plans)
}

// RunPlans runs plans in order and stops at the first failure.
func (r *Runner) RunPlans(ctx context.Context, plans []config.Plan) ([]Report, error) {
	reports := make([]Report, 0, len(plans))
	for _, plan := range plans {
		report, err := r.RunPlan(ctx, plan)
		reports = append(reports, report)
		if err != nil {
			return reports, fmt.Errorf("plan %s: %w", plan.Name, err)
		}
	}
	return reports, nil
}

// RunPlan executes a single plan and journals the outcome.
func (r *Runner) RunPlan(ctx context.Context, plan config.Plan) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		Plan:      plan,
		StartedAt: r.now(),
	}
	ctx = logging.WithRun(ctx, report.RunID, plan.Name)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("plan started",
		logging.String("source", plan.Source),
		logging.String("destination", plan.Destination),
		logging.String("algorithm", plan.HashAlgorithm))

	err := r.execute(ctx, plan, &report, logger)
	report.FinishedAt = r.now()
	report.Outcome = outcomeFor(err)

	r.record(ctx, report, err, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "plan failed", "plan_"+string(report.Outcome),
			logging.String("outcome", string(report.Outcome)),
			logging.String("start_state", report.StartLabel()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)))
		return report, err
	}
	logger.Info("plan finished",
		logging.String("outcome", string(report.Outcome)),
		logging.Bool("rebuilt", report.Rebuilt),
		logging.Int("added", report.Ingest.Added),
		logging.Int("duplicates", report.Ingest.Duplicates),
		logging.Int("rejected", report.Ingest.Rejected),
		logging.Int("entries", report.Entries),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (r *Runner) execute(ctx context.Context, plan config.Plan, report *Report, logger *slog.Logger) error {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return err
	}
	if err := os.MkdirAll(plan.Destination, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if err := preflight.Err(preflight.ForPlan(r.cfg, plan)); err != nil {
		return err
	}

	lock, err := dstlock.Acquire(r.cfg.LockDir(), plan.Destination)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release destination lock", logging.Error(err))
		}
	}()

	hasher, err := contenthash.New(plan.HashAlgorithm, r.cfg.Engine.HashBufferBytes)
	if err != nil {
		return err
	}
	base := logging.WithContext(ctx, r.base)
	store := manifest.NewStore(hasher, Layout(r.cfg), base)
	evaluator := evaluate.New(hasher, r.inspector, plan.Filters.MinBorderPx, base)

	verification, err := store.Verify(plan.Destination)
	if err != nil {
		return err
	}
	report.Verification = verification
	report.StartState = verification.State

	var m *manifest.Manifest
	switch verification.State {
	case manifest.StateValid:
		// Reserved leftovers are only cleared once the run is committed to
		// changing the destination.
		removed, err := store.RemoveStale(plan.Destination)
		report.StaleRemoved = removed
		if err != nil {
			return err
		}
		m = verification.Manifest
		report.ManifestPath = verification.Path
	case manifest.StateMissing:
		repairer := repair.New(store, evaluator, r.confirmer, repair.Options{
			ConfirmPhrase: r.cfg.Engine.ConfirmPhrase,
			Workers:       r.cfg.Engine.Workers,
		}, base)
		rebuilt, summary, err := repairer.Rebuild(ctx, plan.Destination)
		report.Rebuild = summary
		report.StaleRemoved = summary.StaleRemoved
		if err != nil {
			return err
		}
		path, err := store.Persist(rebuilt, plan.Destination)
		if err != nil {
			return fmt.Errorf("persist rebuilt manifest: %w", err)
		}
		report.Rebuilt = true
		report.ManifestPath = path
		m = rebuilt
	default:
		return verification.Err()
	}

	ingestor := ingest.New(store, evaluator, hasher, r.cfg.Engine.Workers, base)
	result, err := ingestor.Ingest(ctx, plan.Source, m, plan.Destination)
	report.Ingest = result
	report.Entries = m.Len()
	if result.ManifestPath != "" {
		report.ManifestPath = result.ManifestPath
	}
	return err
}

func (r *Runner) record(ctx context.Context, report Report, runErr error, logger *slog.Logger) {
	if r.history == nil {
		return
	}
	run := history.Run{
		RunID:          report.RunID,
		Plan:           report.Plan.Name,
		Source:         report.Plan.Source,
		Destination:    report.Plan.Destination,
		Algorithm:      report.Plan.HashAlgorithm,
		StartState:     report.StartLabel(),
		Outcome:        report.Outcome,
		Added:          report.Ingest.Added,
		Duplicates:     report.Ingest.Duplicates,
		Rejected:       report.Ingest.Rejected,
		FailedCopies:   report.Ingest.FailedCopies,
		RebuiltEntries: report.Rebuild.Recorded,
		Quarantined:    report.Rebuild.Quarantined,
		ManifestPath:   report.ManifestPath,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if _, err := r.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "failed to journal run", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is missing from history"),
			logging.String(logging.FieldErrorHint, "check the state directory"))
	}
}

// Layout derives the destination layout from the engine settings.
func Layout(cfg *config.Config) manifest.Layout {
	return manifest.Layout{Ext: cfg.Engine.ManifestExt, QuarantineDir: cfg.Engine.QuarantineDir}
}

func outcomeFor(err error) history.Outcome {
	switch {
	case err == nil:
		return history.OutcomeOK
	case errors.Is(err, repair.ErrDeclined):
		return history.OutcomeDeclined
	case errors.Is(err, manifest.ErrCorrupt), errors.Is(err, manifest.ErrAmbiguous):
		return history.OutcomeAborted
	default:
		return history.OutcomeFailed
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, repair.ErrDeclined):
		return "rerun and type the confirmation phrase, or pass --confirm"
	case errors.Is(err, manifest.ErrCorrupt):
		return "inspect the manifest; delete it to rebuild from the files on disk"
	case errors.Is(err, manifest.ErrAmbiguous):
		return "keep the authoritative manifest and remove the other candidates"
	case errors.Is(err, dstlock.ErrLocked):
		return "another picgaz run is using this destination"
	default:
		return "check logs for details"
	}
}
