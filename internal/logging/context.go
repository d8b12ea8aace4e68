package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one plan run; every line a run emits carries it.
	FieldRunID = "run_id"
	// FieldPlan is the configured plan name.
	FieldPlan = "plan"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPath is the file a line is about.
	FieldPath = "path"
	// FieldHash is a content digest.
	FieldHash = "hash"
	// FieldReason is a rejection or quarantine reason.
	FieldReason = "reason"
)

type runKey struct{}

type runInfo struct {
	id   string
	plan string
}

// WithRun returns a context tagged with the run id and plan name.
func WithRun(ctx context.Context, runID, plan string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runKey{}, runInfo{id: runID, plan: plan})
}

// RunIDFromContext returns the run id stored by WithRun.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	info, ok := ctx.Value(runKey{}).(runInfo)
	if !ok || info.id == "" {
		return "", false
	}
	return info.id, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	info, ok := ctx.Value(runKey{}).(runInfo)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if info.id != "" {
		fields = append(fields, slog.String(FieldRunID, info.id))
	}
	if info.plan != "" {
		fields = append(fields, slog.String(FieldPlan, info.plan))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
