package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"picgaz/internal/contenthash"
	"picgaz/internal/evaluate"
	"picgaz/internal/fileutil"
	"picgaz/internal/logging"
	"picgaz/internal/manifest"
)

// Result counts the outcome of one ingest pass.
type Result struct {
	Scanned      int
	Added        int
	Duplicates   int
	Rejected     int
	FailedCopies int
	AddedBytes   int64
	// Rejections breaks Rejected down by evaluator reason.
	Rejections map[evaluate.Reason]int
	// ManifestPath is the persisted manifest, set only when Added > 0.
	ManifestPath string
}

// Ingestor moves acceptable source files into a destination store.
type Ingestor struct {
	store     *manifest.Store
	evaluator *evaluate.Evaluator
	hasher    *contenthash.Hasher
	workers   int
	logger    *slog.Logger
}

// New returns an Ingestor. hasher must use the destination's algorithm; it
// re-checks every copy before the copy is renamed into place.
func New(store *manifest.Store, evaluator *evaluate.Evaluator, hasher *contenthash.Hasher, workers int, logger *slog.Logger) *Ingestor {
	if workers < 1 {
		workers = 1
	}
	return &Ingestor{
		store:     store,
		evaluator: evaluator,
		hasher:    hasher,
		workers:   workers,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest adds every acceptable file of sourceDir whose hash is absent from m.
// m must be the verified manifest of destDir and is updated in place.
func (i *Ingestor) Ingest(ctx context.Context, sourceDir string, m *manifest.Manifest, destDir string) (Result, error) {
	logger := i.logger
	result := Result{Rejections: make(map[evaluate.Reason]int)}

	paths, err := scan(sourceDir)
	if err != nil {
		return result, err
	}
	result.Scanned = len(paths)
	logger.Info("source scanned",
		logging.String("source", sourceDir),
		logging.Int("file_count", len(paths)))

	evaluated, err := i.evaluator.EvaluateAll(ctx, paths, i.workers)
	if err != nil {
		return result, fmt.Errorf("evaluate source: %w", err)
	}

	for _, item := range evaluated {
		if !item.Accepted() {
			result.Rejected++
			result.Rejections[item.Reason]++
			continue
		}
		if m.Has(item.Entry.Hash) {
			result.Duplicates++
			logger.Debug("already stored",
				logging.String(logging.FieldPath, item.Path),
				logging.String(logging.FieldHash, item.Entry.Hash))
			continue
		}
		entry, err := i.place(item, destDir)
		if err != nil {
			result.FailedCopies++
			logging.WarnWithContext(logger, "copy into destination failed", "ingest_copy_failed",
				logging.String(logging.FieldPath, item.Path),
				logging.String(logging.FieldHash, item.Entry.Hash),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the destination"))
			continue
		}
		if err := m.Put(entry); err != nil {
			return result, err
		}
		result.Added++
		result.AddedBytes += entry.Size
		logger.Info("file added",
			logging.String(logging.FieldPath, item.Path),
			logging.String(logging.FieldHash, entry.Hash),
			logging.String("format", entry.Format),
			logging.Int64("size", entry.Size))
	}

	if result.Added > 0 {
		path, err := i.store.Persist(m, destDir)
		if err != nil {
			return result, fmt.Errorf("persist manifest: %w", err)
		}
		result.ManifestPath = path
	}

	logger.Info("ingest complete",
		logging.String("source", sourceDir),
		logging.Int("added", result.Added),
		logging.Int("duplicates", result.Duplicates),
		logging.Int("rejected", result.Rejected),
		logging.Int("failed_copies", result.FailedCopies),
		logging.Int64("added_bytes", result.AddedBytes))
	return result, nil
}

// place copies the evaluated file into destDir under its canonical name.
func (i *Ingestor) place(item evaluate.Result, destDir string) (manifest.Entry, error) {
	entry := item.Entry
	target := filepath.Join(destDir, entry.FileName())
	exists, err := fileutil.Exists(target)
	if err != nil {
		return entry, err
	}
	if exists {
		return entry, fmt.Errorf("%s already exists but is not in the manifest", target)
	}

	tmp := filepath.Join(destDir, manifest.ReservedPrefix+"ingest-"+uuid.NewString()+".tmp")
	written, err := fileutil.CopyFileVerified(item.Path, tmp)
	if err != nil {
		return entry, err
	}
	digest, err := i.hasher.HashFile(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return entry, fmt.Errorf("hash copy: %w", err)
	}
	if digest != entry.Hash {
		_ = os.Remove(tmp)
		return entry, fmt.Errorf("source changed after evaluation: expected %s, copied %s", entry.Hash, digest)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return entry, fmt.Errorf("rename copy: %w", err)
	}
	entry.Size = written
	return entry, nil
}

// scan lists the regular files directly inside dir, following symlinks.
func scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list source %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}
