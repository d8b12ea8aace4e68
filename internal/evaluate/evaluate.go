package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"picgaz/internal/contenthash"
	"picgaz/internal/inspect"
	"picgaz/internal/logging"
	"picgaz/internal/manifest"
)

// Reason explains why a file was rejected.
type Reason string

const (
	ReasonMissing        Reason = "missing"
	ReasonUndecodable    Reason = "undecodable"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonIOFailure      Reason = "io_failure"
)

// Result is the outcome of evaluating one path. Reason is empty for accepted
// files, in which case Entry is populated.
type Result struct {
	Path   string
	Entry  manifest.Entry
	Reason Reason
	Err    error
}

// Accepted reports whether the file passed every check.
func (r Result) Accepted() bool {
	return r.Reason == ""
}

// Evaluator decides whether files belong in a destination store.
type Evaluator struct {
	hasher      *contenthash.Hasher
	inspector   inspect.Inspector
	minBorderPx int
	logger      *slog.Logger
	now         func() time.Time
}

// New returns an Evaluator. A nil inspector selects inspect.ImageInspector.
func New(hasher *contenthash.Hasher, inspector inspect.Inspector, minBorderPx int, logger *slog.Logger) *Evaluator {
	if inspector == nil {
		inspector = inspect.ImageInspector{}
	}
	return &Evaluator{
		hasher:      hasher,
		inspector:   inspector,
		minBorderPx: minBorderPx,
		logger:      logging.NewComponentLogger(logger, "evaluate"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate applies the acceptance policy to path.
func (e *Evaluator) Evaluate(path string) (result Result) {
	result.Path = path
	defer func() {
		if r := recover(); r != nil {
			result = e.reject(path, ReasonUndecodable, fmt.Errorf("%w: panic: %v", inspect.ErrUndecodable, r))
		}
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return e.reject(path, ReasonMissing, err)
		}
		return e.reject(path, ReasonIOFailure, err)
	}
	if stat.IsDir() {
		return e.reject(path, ReasonMissing, fmt.Errorf("%s is a directory", path))
	}

	info, err := e.inspector.Inspect(path)
	if err != nil {
		if errors.Is(err, inspect.ErrUndecodable) {
			return e.reject(path, ReasonUndecodable, err)
		}
		return e.reject(path, ReasonIOFailure, err)
	}
	if info.Format == "" {
		return e.reject(path, ReasonUndecodable, inspect.ErrUndecodable)
	}
	if info.ShortSide() < e.minBorderPx {
		return e.reject(path, ReasonBelowThreshold,
			fmt.Errorf("%dx%d is below %dpx", info.Width, info.Height, e.minBorderPx))
	}

	hash, err := e.hasher.HashFile(path)
	if err != nil {
		return e.reject(path, ReasonIOFailure, err)
	}

	result.Entry = manifest.Entry{
		Hash:       hash,
		Format:     info.Format,
		Size:       stat.Size(),
		Width:      info.Width,
		Height:     info.Height,
		RecordedAt: e.now(),
	}
	e.logger.Debug("file accepted",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldHash, hash),
		logging.String("format", info.Format))
	return result
}

func (e *Evaluator) reject(path string, reason Reason, err error) Result {
	attrs := []logging.Attr{
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldReason, string(reason)),
		logging.Error(err),
	}
	switch reason {
	case ReasonMissing:
		e.logger.Debug("file missing", logging.Args(attrs...)...)
	case ReasonBelowThreshold:
		e.logger.Info("file below size threshold", logging.Args(attrs...)...)
	case ReasonUndecodable:
		logging.WarnWithContext(e.logger, "file is not a decodable image", "file_undecodable",
			append(attrs, logging.String(logging.FieldErrorHint, "the file is not an image or is truncated"))...)
	default:
		logging.WarnWithContext(e.logger, "file could not be read", "file_io_failure",
			append(attrs, logging.String(logging.FieldErrorHint, "check permissions and disk health"))...)
	}
	return Result{Path: path, Reason: reason, Err: err}
}

// EvaluateAll evaluates paths on at most workers goroutines and returns the
// results in input order. Cancellation is observed between files; a
// cancelled context yields ctx.Err() and no results.
func (e *Evaluator) EvaluateAll(ctx context.Context, paths []string, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, path := range paths {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = e.Evaluate(path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
