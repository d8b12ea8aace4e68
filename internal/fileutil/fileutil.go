package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// dst is fsynced before the check and removed on mismatch. It returns the
// number of bytes written.
func CopyFileVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)

	written, err := io.Copy(out, tee)
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	if err := out.Sync(); err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return 0, err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	// Re-read what landed on disk rather than trusting the write path.
	dstHash, err := sha256File(dst)
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("hash copy: %w", err)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHash) {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return written, nil
}

func sha256File(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// MoveFile renames src to dst. When the two live on different filesystems
// it falls back to a verified copy followed by removal of src.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}
	if _, err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("cross-device move %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove moved source %s: %w", src, err)
	}
	return nil
}

// Exists reports whether path names an existing filesystem entry.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
