package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"picgaz/internal/evaluate"
	"picgaz/internal/fileutil"
	"picgaz/internal/logging"
	"picgaz/internal/manifest"
)

// ErrDeclined reports that the operator did not confirm a rebuild.
var ErrDeclined = errors.New("rebuild not confirmed")

// Quarantine reasons that do not come from the evaluator.
const (
	ReasonDuplicate    = "duplicate"
	ReasonNameConflict = "name_conflict"
)

// Move records one file relocated during a rebuild.
type Move struct {
	From   string
	To     string
	Reason string
}

// Summary counts what a rebuild did.
type Summary struct {
	Scanned      int
	Recorded     int
	Renamed      int
	Quarantined  int
	Duplicates   int
	Vanished     int
	StaleRemoved int
	Moves        []Move
}

// Options tune a Repairer.
type Options struct {
	ConfirmPhrase string
	Workers       int
}

// Repairer rebuilds manifests for destinations in the Missing state.
type Repairer struct {
	store     *manifest.Store
	evaluator *evaluate.Evaluator
	confirmer Confirmer
	opts      Options
	logger    *slog.Logger
}

// New returns a Repairer. The store supplies the destination layout.
func New(store *manifest.Store, evaluator *evaluate.Evaluator, confirmer Confirmer, opts Options, logger *slog.Logger) *Repairer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Repairer{
		store:     store,
		evaluator: evaluator,
		confirmer: confirmer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "repair"),
	}
}

type pending struct {
	path  string
	entry manifest.Entry
}

// Rebuild scans dir, normalizes it, and returns a manifest describing every
// content file left in place. No file is touched until the confirmation
// phrase matches, and ctx is only honoured before that point and during
// evaluation.
func (r *Repairer) Rebuild(ctx context.Context, dir string) (*manifest.Manifest, Summary, error) {
	logger := r.logger
	var summary Summary

	listing, err := r.store.List(dir)
	if err != nil {
		return nil, summary, err
	}
	if len(listing.Candidates) > 0 {
		return nil, summary, fmt.Errorf("rebuild %s: destination already holds a manifest (%s)",
			dir, strings.Join(listing.Candidates, ", "))
	}
	summary.Scanned = len(listing.Content)
	if len(listing.Content) == 0 {
		removed, err := r.store.RemoveStale(dir)
		summary.StaleRemoved = removed
		if err != nil {
			return nil, summary, err
		}
		logger.Info("destination empty; starting a fresh manifest", logging.String("destination", dir))
		return manifest.New(), summary, nil
	}

	if err := r.confirm(ctx, dir, len(listing.Content)); err != nil {
		return nil, summary, err
	}

	results, err := r.evaluator.EvaluateAll(ctx, listing.Content, r.opts.Workers)
	if err != nil {
		return nil, summary, fmt.Errorf("evaluate destination: %w", err)
	}

	removed, err := r.store.RemoveStale(dir)
	summary.StaleRemoved = removed
	if err != nil {
		return nil, summary, err
	}

	m := manifest.New()
	var renames []pending
	for _, result := range results {
		if !result.Accepted() {
			if result.Reason == evaluate.ReasonMissing {
				summary.Vanished++
				continue
			}
			if err := r.quarantine(dir, result.Path, string(result.Reason), &summary, logger); err != nil {
				return nil, summary, err
			}
			continue
		}
		canonical := filepath.Join(dir, result.Entry.FileName())
		if result.Path != canonical {
			renames = append(renames, pending{path: result.Path, entry: result.Entry})
			continue
		}
		if err := m.Put(result.Entry); err != nil {
			return nil, summary, err
		}
		summary.Recorded++
	}

	if err := r.applyRenames(dir, m, renames, &summary, logger); err != nil {
		return nil, summary, err
	}

	logger.Info("manifest rebuilt",
		logging.String("destination", dir),
		logging.Int("entries", m.Len()),
		logging.Int("renamed", summary.Renamed),
		logging.Int("quarantined", summary.Quarantined),
		logging.Int("duplicates", summary.Duplicates))
	return m, summary, nil
}

func (r *Repairer) confirm(ctx context.Context, dir string, count int) error {
	if r.confirmer == nil {
		return fmt.Errorf("%w: no confirmation source", ErrDeclined)
	}
	prompt := fmt.Sprintf("Destination %s holds %d files but no manifest.\nFiles will be renamed and rejects quarantined. Type %q to rebuild: ",
		dir, count, r.opts.ConfirmPhrase)
	answer, err := r.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("confirm rebuild: %w", err)
	}
	if r.opts.ConfirmPhrase == "" || answer != r.opts.ConfirmPhrase {
		r.logger.Warn("rebuild declined",
			logging.String("destination", dir),
			logging.String(logging.FieldEventType, "rebuild_declined"),
			logging.String(logging.FieldImpact, "destination left untouched; plan aborted"))
		return fmt.Errorf("%w for %s", ErrDeclined, dir)
	}
	return nil
}

// applyRenames moves accepted files to their canonical names. A target held
// by another pending file is retried after that file moves; a cycle is broken
// by parking one file under a neutral name first.
func (r *Repairer) applyRenames(dir string, m *manifest.Manifest, queue []pending, summary *Summary, logger *slog.Logger) error {
	for len(queue) > 0 {
		occupied := make(map[string]bool, len(queue))
		for _, p := range queue {
			occupied[p.path] = true
		}

		var next []pending
		progress := false
		for _, p := range queue {
			if m.Has(p.entry.Hash) {
				summary.Duplicates++
				if err := r.quarantine(dir, p.path, ReasonDuplicate, summary, logger); err != nil {
					return err
				}
				delete(occupied, p.path)
				progress = true
				continue
			}
			target := filepath.Join(dir, p.entry.FileName())
			if occupied[target] {
				next = append(next, p)
				continue
			}
			exists, err := fileutil.Exists(target)
			if err != nil {
				return fmt.Errorf("check %s: %w", target, err)
			}
			if exists && !caseOnlyRename(p.path, target) {
				if err := r.quarantine(dir, p.path, ReasonNameConflict, summary, logger); err != nil {
					return err
				}
				delete(occupied, p.path)
				progress = true
				continue
			}
			if err := os.Rename(p.path, target); err != nil {
				return fmt.Errorf("rename %s: %w", p.path, err)
			}
			logger.Info("renamed to canonical name",
				logging.String(logging.FieldPath, p.path),
				logging.String("target", target))
			summary.Renamed++
			summary.Moves = append(summary.Moves, Move{From: p.path, To: target, Reason: "rename"})
			delete(occupied, p.path)
			if err := m.Put(p.entry); err != nil {
				return err
			}
			summary.Recorded++
			progress = true
		}

		if !progress && len(next) > 0 {
			parked := filepath.Join(dir, "picgaz-parked-"+uuid.NewString()+filepath.Ext(next[0].path))
			if err := os.Rename(next[0].path, parked); err != nil {
				return fmt.Errorf("park %s: %w", next[0].path, err)
			}
			logger.Debug("parked file to break rename cycle",
				logging.String(logging.FieldPath, next[0].path),
				logging.String("parked", parked))
			next[0].path = parked
		}
		queue = next
	}
	return nil
}

func (r *Repairer) quarantine(dir, path, reason string, summary *Summary, logger *slog.Logger) error {
	qdir := filepath.Join(dir, r.store.Layout().QuarantineDir)
	if err := os.MkdirAll(qdir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}
	target, err := uniqueTarget(qdir, filepath.Base(path))
	if err != nil {
		return err
	}
	if err := fileutil.MoveFile(path, target); err != nil {
		return fmt.Errorf("quarantine %s: %w", path, err)
	}
	logging.WarnWithContext(logger, "file quarantined", "file_quarantined",
		logging.String(logging.FieldPath, path),
		logging.String("target", target),
		logging.String(logging.FieldReason, reason),
		logging.String(logging.FieldImpact, "file moved out of the store"),
		logging.String(logging.FieldErrorHint, "review the quarantine directory"))
	summary.Quarantined++
	summary.Moves = append(summary.Moves, Move{From: path, To: target, Reason: reason})
	return nil
}

// caseOnlyRename reports whether target is path itself seen through a
// case-insensitive filesystem, e.g. "h.png" on disk and "h.PNG" wanted.
func caseOnlyRename(path, target string) bool {
	if path == target || !strings.EqualFold(path, target) {
		return false
	}
	a, err := os.Stat(path)
	if err != nil {
		return false
	}
	b, err := os.Stat(target)
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}

// uniqueTarget returns qdir/name, or a suffixed variant when that is taken.
func uniqueTarget(qdir, name string) (string, error) {
	target := filepath.Join(qdir, name)
	exists, err := fileutil.Exists(target)
	if err != nil {
		return "", err
	}
	if !exists {
		return target, nil
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(qdir, stem+"-"+uuid.NewString()[:8]+ext), nil
}
