// Package logging assembles structured slog loggers and formatting helpers used
// across picgaz.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so every line emitted during a plan run
// carries the run id and plan name. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
