// Package dstlock guards a destination store against concurrent runs.
//
// The lock file is kept under the state directory, keyed by a digest of the
// destination path, so it never appears among the destination's files.
package dstlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another process holds the destination.
var ErrLocked = errors.New("destination is locked by another run")

// Lock is an acquired destination lock.
type Lock struct {
	path        string
	destination string
	lock        *flock.Flock
}

// PathFor returns the lock file used for destination.
func PathFor(lockDir, destination string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(destination)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:])+".lock")
}

// Acquire takes the lock for destination without blocking.
func Acquire(lockDir, destination string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := PathFor(lockDir, destination)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (lock %s)", ErrLocked, destination, path)
	}
	return &Lock{path: path, destination: destination, lock: lock}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the destination. Releasing a nil Lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
