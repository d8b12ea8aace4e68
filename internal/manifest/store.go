package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"picgaz/internal/contenthash"
	"picgaz/internal/logging"
)

// ReservedPrefix marks picgaz's own transient files inside a destination.
// They are never counted as content and never evaluated.
const ReservedPrefix = ".picgaz-"

// TempName is the temporary artifact a manifest is written to before rename.
const TempName = ReservedPrefix + "manifest.tmp"

// Layout names the reserved entries of a destination directory.
type Layout struct {
	// Ext is the manifest extension without a leading dot.
	Ext string
	// QuarantineDir is the subdirectory holding rejected files.
	QuarantineDir string
}

// IsCandidate reports whether name looks like a persisted manifest.
func (l Layout) IsCandidate(name string) bool {
	return strings.HasSuffix(name, "."+l.Ext) && len(name) > len(l.Ext)+1
}

// IsReserved reports whether name is picgaz bookkeeping rather than content.
func (l Layout) IsReserved(name string) bool {
	return name == l.QuarantineDir || strings.HasPrefix(name, ReservedPrefix)
}

// Store verifies and persists the manifest of destination directories. It
// holds no per-destination state; the manifest object is passed in by its
// owner.
type Store struct {
	hasher *contenthash.Hasher
	layout Layout
	logger *slog.Logger
}

// NewStore returns a Store that names manifests with hasher's digests.
func NewStore(hasher *contenthash.Hasher, layout Layout, logger *slog.Logger) *Store {
	return &Store{
		hasher: hasher,
		layout: layout,
		logger: logging.NewComponentLogger(logger, "manifest"),
	}
}

// Layout returns the reserved-name layout the store uses.
func (s *Store) Layout() Layout {
	return s.layout
}

// Listing splits the direct entries of a destination.
type Listing struct {
	Candidates []string // manifest candidates, absolute paths, sorted
	Content    []string // content files, absolute paths, sorted
	Stale      []string // leftover reserved temporary files
}

// List scans dir without recursing.
func (s *Store) List(dir string) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("list destination %s: %w", dir, err)
	}
	var out Listing
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		switch {
		case s.layout.IsReserved(name):
			if !entry.IsDir() {
				out.Stale = append(out.Stale, path)
			}
		case entry.IsDir():
		case s.layout.IsCandidate(name):
			out.Candidates = append(out.Candidates, path)
		default:
			out.Content = append(out.Content, path)
		}
	}
	sort.Strings(out.Candidates)
	sort.Strings(out.Content)
	sort.Strings(out.Stale)
	return out, nil
}

// RemoveStale deletes leftover temporary artifacts from an interrupted run.
func (s *Store) RemoveStale(dir string) (int, error) {
	listing, err := s.List(dir)
	if err != nil {
		return 0, err
	}
	for _, path := range listing.Stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove stale artifact %s: %w", path, err)
		}
		s.logger.Info("removed stale temporary artifact", logging.String(logging.FieldPath, path))
	}
	return len(listing.Stale), nil
}

// Verify classifies the destination. An error is returned only when the
// directory or the single candidate cannot be read at all.
func (s *Store) Verify(dir string) (Verification, error) {
	listing, err := s.List(dir)
	if err != nil {
		return Verification{}, err
	}
	v := Verification{Dir: dir, FileCount: len(listing.Content)}

	switch len(listing.Candidates) {
	case 0:
		v.State = StateMissing
		s.logger.Warn("no manifest found; destination needs a rebuild",
			logging.String("destination", dir),
			logging.Int("file_count", v.FileCount))
		return v, nil
	case 1:
	default:
		v.State = StateAmbiguous
		v.Candidates = listing.Candidates
		logging.ErrorWithContext(s.logger, "multiple manifest candidates", "manifest_ambiguous",
			logging.String("destination", dir),
			logging.Int("candidate_count", len(listing.Candidates)),
			logging.String("candidates", strings.Join(listing.Candidates, ",")),
			logging.String(logging.FieldErrorHint, "keep the authoritative manifest and remove the others"))
		return v, nil
	}

	path := listing.Candidates[0]
	v.Path = path
	v.Candidates = listing.Candidates

	data, digest, err := s.readDigest(path)
	if err != nil {
		return Verification{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), "."+s.layout.Ext)
	s.logger.Debug("manifest detected",
		logging.String(logging.FieldPath, path),
		logging.String("stem", stem),
		logging.String(logging.FieldHash, digest))

	if digest != stem {
		return s.corrupt(v, ReasonChecksumMismatch,
			logging.String("stem", stem), logging.String(logging.FieldHash, digest)), nil
	}

	m, err := Unmarshal(data)
	if err != nil {
		reason := ReasonUnreadable
		if errors.Is(err, errKeyMismatch) {
			reason = ReasonKeyMismatch
		}
		return s.corrupt(v, reason, logging.Error(err)), nil
	}

	if m.Len() != v.FileCount {
		return s.corrupt(v, ReasonCountMismatch,
			logging.Int("entry_count", m.Len()),
			logging.Int("file_count", v.FileCount)), nil
	}

	v.State = StateValid
	v.Manifest = m
	s.logger.Info("manifest verified",
		logging.String(logging.FieldPath, path),
		logging.Int("entry_count", m.Len()))
	return v, nil
}

// readDigest reads a manifest once, hashing it on the way in.
func (s *Store) readDigest(path string) ([]byte, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	digest, err := s.hasher.HashReader(io.TeeReader(file, &buf))
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), digest, nil
}

func (s *Store) corrupt(v Verification, reason string, attrs ...logging.Attr) Verification {
	v.State = StateCorrupt
	v.Reason = reason
	attrs = append(attrs,
		logging.String(logging.FieldPath, v.Path),
		logging.String(logging.FieldReason, reason),
		logging.String(logging.FieldErrorHint, "the manifest may have been edited or truncated; inspect it or delete it to rebuild"))
	logging.ErrorWithContext(s.logger, "manifest failed verification", "manifest_corrupt", attrs...)
	return v
}

// Persist writes m into dir as "<digest>.<ext>" and returns the new path.
// The bytes go to TempName first and are renamed once their digest is
// known; the previous manifest is removed only after the rename succeeds.
func (s *Store) Persist(m *Manifest, dir string) (string, error) {
	listing, err := s.List(dir)
	if err != nil {
		return "", err
	}
	if len(listing.Candidates) > 1 {
		return "", &StateError{State: StateAmbiguous, Dir: dir, Candidates: listing.Candidates}
	}

	data, err := m.Marshal()
	if err != nil {
		return "", err
	}

	tmpPath := filepath.Join(dir, TempName)
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp manifest: %w", err)
	}

	digest, err := s.hasher.HashFile(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("hash temp manifest: %w", err)
	}

	finalPath := filepath.Join(dir, digest+"."+s.layout.Ext)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp manifest: %w", err)
	}

	for _, previous := range listing.Candidates {
		if previous == finalPath {
			continue
		}
		if err := os.Remove(previous); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove previous manifest %s: %w", previous, err)
		}
	}
	syncDir(dir)

	s.logger.Info("manifest persisted",
		logging.String(logging.FieldPath, finalPath),
		logging.Int("entry_count", m.Len()))
	return finalPath, nil
}

func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// syncDir flushes directory metadata so the rename survives a crash. Not
// every filesystem supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
