package contenthash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

func TestHashFileKnownDigests(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"md5":    "5eb63bbbe01eeed093cb22bb8f5acdc3",
		"sha1":   "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed",
		"sha256": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	}
	for algo, digest := range want {
		h, err := New(algo, 0)
		if err != nil {
			t.Fatalf("New(%s): %v", algo, err)
		}
		got, err := h.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile(%s): %v", algo, err)
		}
		if got != digest {
			t.Fatalf("%s digest mismatch: got %s want %s", algo, got, digest)
		}
	}
}

func TestHashFileChunkedMatchesWhole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	payload := []byte(strings.Repeat("0123456789abcdef", 4096))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, algo := range Algorithms() {
		small, err := New(algo, 7)
		if err != nil {
			t.Fatal(err)
		}
		chunked, err := small.HashFile(path)
		if err != nil {
			t.Fatalf("chunked %s: %v", algo, err)
		}
		if whole := small.HashBytes(payload); chunked != whole {
			t.Fatalf("%s: chunked digest %s differs from whole digest %s", algo, chunked, whole)
		}
	}
}

func TestHashReaderReportsReadFailure(t *testing.T) {
	h, err := New("md5", 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.HashReader(strings.NewReader("hello world"))
	if err != nil || got != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Fatalf("HashReader = %q, %v", got, err)
	}

	broken := io.MultiReader(strings.NewReader("hello"), iotest.ErrReader(errBoom))
	digest, err := h.HashReader(broken)
	if !errors.Is(err, errBoom) || digest != "" {
		t.Fatalf("expected read failure and empty digest, got %q, %v", digest, err)
	}
}

var errBoom = errors.New("boom")

func TestHashFileIgnoresNameAndLocation(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "sub", "other-name.png")
	if err := os.MkdirAll(filepath.Dir(b), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("same bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	h, err := New("blake3", 0)
	if err != nil {
		t.Fatal(err)
	}
	da, err := h.HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := h.HashFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if da != db {
		t.Fatalf("expected identical digests, got %s and %s", da, db)
	}
	if len(da) != 64 {
		t.Fatalf("expected 32-byte blake3 digest, got %d hex chars", len(da))
	}
}

func TestHashFileMissingReturnsError(t *testing.T) {
	h, err := New("md5", 0)
	if err != nil {
		t.Fatal(err)
	}
	digest, err := h.HashFile(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if digest != "" {
		t.Fatalf("expected empty digest on error, got %q", digest)
	}
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	_, err := New("crc32", 0)
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
	if Supported("crc32") {
		t.Fatal("crc32 should not be supported")
	}
	if !Supported(" SHA256 ") {
		t.Fatal("expected case-insensitive support check")
	}
}
