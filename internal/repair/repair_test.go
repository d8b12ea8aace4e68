package repair_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picgaz/internal/contenthash"
	"picgaz/internal/evaluate"
	"picgaz/internal/manifest"
	"picgaz/internal/repair"
	"picgaz/internal/testsupport"
)

const phrase = "yEs"

type harness struct {
	store  *manifest.Store
	hasher *contenthash.Hasher
}

func newHarness(t *testing.T) harness {
	t.Helper()
	hasher, err := contenthash.New("md5", 4096)
	if err != nil {
		t.Fatalf("contenthash.New: %v", err)
	}
	store := manifest.NewStore(hasher, manifest.Layout{Ext: "yml", QuarantineDir: "FAILED_FILES_OF_PICGAZ"}, nil)
	return harness{store: store, hasher: hasher}
}

func (h harness) repairer(confirmer repair.Confirmer, minBorderPx int) *repair.Repairer {
	eval := evaluate.New(h.hasher, nil, minBorderPx, nil)
	return repair.New(h.store, eval, confirmer, repair.Options{ConfirmPhrase: phrase, Workers: 2}, nil)
}

type failingConfirmer struct{ t *testing.T }

func (f failingConfirmer) Confirm(context.Context, string) (string, error) {
	f.t.Fatal("confirmation must not be requested")
	return "", nil
}

func TestRebuildRenamesDrift(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	pngData := testsupport.WritePNG(t, filepath.Join(dir, "holiday.png"), 40, 30, 1)
	// PNG bytes behind a misleading extension.
	misnamed := testsupport.PNGBytes(t, 50, 50, 2)
	testsupport.WriteBytes(t, filepath.Join(dir, "scan.jpg"), misnamed)

	m, summary, err := h.repairer(repair.StaticConfirmer(phrase), 0).Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if summary.Renamed != 2 || m.Len() != 2 {
		t.Fatalf("expected 2 renames and 2 entries, got renamed=%d entries=%d", summary.Renamed, m.Len())
	}

	want := []string{
		h.hasher.HashBytes(misnamed) + ".PNG",
		h.hasher.HashBytes(pngData) + ".PNG",
	}
	for _, name := range want {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected canonical file %s: %v", name, err)
		}
	}

	if _, err := h.store.Persist(m, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	v, err := h.store.Verify(dir)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.State != manifest.StateValid {
		t.Fatalf("expected valid after rebuild, got %s (%s)", v.State, v.Reason)
	}
}

func TestRebuildDeclinedLeavesFilesUntouched(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(dir, "a.png"), 10, 10, 1)
	testsupport.WriteBytes(t, filepath.Join(dir, "notes.txt"), []byte("hello"))
	before := testsupport.ListNames(t, dir)

	for _, answer := range []string{"yes", "YES", "", " yEs"} {
		_, _, err := h.repairer(repair.StaticConfirmer(answer), 0).Rebuild(context.Background(), dir)
		if !errors.Is(err, repair.ErrDeclined) {
			t.Fatalf("answer %q: expected ErrDeclined, got %v", answer, err)
		}
	}

	after := testsupport.ListNames(t, dir)
	if strings.Join(before, "|") != strings.Join(after, "|") {
		t.Fatalf("declined rebuild modified the destination: %v -> %v", before, after)
	}
}

func TestRebuildEmptyDestinationSkipsConfirmation(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, manifest.TempName), []byte("partial"))

	m, summary, err := h.repairer(failingConfirmer{t}, 0).Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty manifest, got %d entries", m.Len())
	}
	if summary.StaleRemoved != 1 {
		t.Fatalf("expected stale temp removed, got %d", summary.StaleRemoved)
	}
}

func TestRebuildQuarantinesRejectsAndDuplicates(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	big := testsupport.WritePNG(t, filepath.Join(dir, "big.png"), 200, 200, 1)
	testsupport.WriteBytes(t, filepath.Join(dir, "copy-of-big.png"), big)
	testsupport.WritePNG(t, filepath.Join(dir, "tiny.png"), 20, 200, 2)
	testsupport.WriteBytes(t, filepath.Join(dir, "notes.txt"), []byte("not an image"))
	// A file already under its canonical name is recorded in place.
	inPlace := testsupport.PNGBytes(t, 150, 150, 3)
	testsupport.WriteBytes(t, filepath.Join(dir, h.hasher.HashBytes(inPlace)+".PNG"), inPlace)

	m, summary, err := h.repairer(repair.StaticConfirmer(phrase), 100).Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	if summary.Quarantined != 3 || summary.Duplicates != 1 {
		t.Fatalf("expected 3 quarantined (1 duplicate), got %+v", summary)
	}

	quarantined := testsupport.ListNames(t, filepath.Join(dir, "FAILED_FILES_OF_PICGAZ"))
	if len(quarantined) != 3 {
		t.Fatalf("expected 3 files in quarantine, got %v", quarantined)
	}

	listing, err := h.store.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Content) != m.Len() {
		t.Fatalf("count invariant broken: %d files, %d entries", len(listing.Content), m.Len())
	}
}

func TestRebuildQuarantineNameCollision(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, "FAILED_FILES_OF_PICGAZ", "notes.txt"), []byte("earlier"))
	testsupport.WriteBytes(t, filepath.Join(dir, "notes.txt"), []byte("later"))

	_, summary, err := h.repairer(repair.StaticConfirmer(phrase), 0).Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if summary.Quarantined != 1 {
		t.Fatalf("expected 1 quarantined file, got %d", summary.Quarantined)
	}
	names := testsupport.ListNames(t, filepath.Join(dir, "FAILED_FILES_OF_PICGAZ"))
	if len(names) != 2 {
		t.Fatalf("expected both quarantined files to survive, got %v", names)
	}
	earlier, err := os.ReadFile(filepath.Join(dir, "FAILED_FILES_OF_PICGAZ", "notes.txt"))
	if err != nil || string(earlier) != "earlier" {
		t.Fatalf("existing quarantined file was overwritten: %q %v", earlier, err)
	}
}

func TestRebuildResolvesSwappedNames(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	a := testsupport.PNGBytes(t, 30, 30, 1)
	b := testsupport.PNGBytes(t, 31, 31, 2)
	hashA := h.hasher.HashBytes(a)
	hashB := h.hasher.HashBytes(b)
	// Each file sits under the other's canonical name.
	testsupport.WriteBytes(t, filepath.Join(dir, hashB+".PNG"), a)
	testsupport.WriteBytes(t, filepath.Join(dir, hashA+".PNG"), b)

	m, summary, err := h.repairer(repair.StaticConfirmer(phrase), 0).Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if m.Len() != 2 || summary.Quarantined != 0 {
		t.Fatalf("expected both files kept, got entries=%d quarantined=%d", m.Len(), summary.Quarantined)
	}
	for hash, want := range map[string][]byte{hashA: a, hashB: b} {
		got, err := os.ReadFile(filepath.Join(dir, hash+".PNG"))
		if err != nil {
			t.Fatalf("read %s: %v", hash, err)
		}
		if h.hasher.HashBytes(got) != h.hasher.HashBytes(want) {
			t.Fatalf("file %s.PNG holds the wrong content", hash)
		}
	}
	if names := testsupport.ListNames(t, dir); len(names) != 2 {
		t.Fatalf("expected exactly two files, got %v", names)
	}
}

func TestPromptConfirmerReadsOneLine(t *testing.T) {
	var out strings.Builder
	c := repair.PromptConfirmer{In: strings.NewReader("yEs\r\nignored\n"), Out: &out}
	answer, err := c.Confirm(context.Background(), "continue? ")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if answer != "yEs" {
		t.Fatalf("answer = %q", answer)
	}
	if out.String() != "continue? " {
		t.Fatalf("prompt = %q", out.String())
	}

	empty := repair.PromptConfirmer{In: strings.NewReader("")}
	if answer, err := empty.Confirm(context.Background(), ""); err != nil || answer != "" {
		t.Fatalf("closed input: %q %v", answer, err)
	}
}
