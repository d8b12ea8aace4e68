package manifest

import (
	"errors"
	"strings"
	"testing"
)

func TestPutRejectsIncompleteEntries(t *testing.T) {
	m := New()
	if err := m.Put(Entry{Format: "PNG"}); err == nil {
		t.Fatal("expected error for entry without hash")
	}
	if err := m.Put(Entry{Hash: "abc"}); err == nil {
		t.Fatal("expected error for entry without format")
	}
	if m.Len() != 0 {
		t.Fatalf("rejected entries must not be stored, len=%d", m.Len())
	}
}

func TestMarshalSortsKeys(t *testing.T) {
	m := New()
	for _, h := range []string{"ccc", "aaa", "bbb"} {
		if err := m.Put(Entry{Hash: h, Format: "PNG", Size: 1, Width: 1, Height: 1}); err != nil {
			t.Fatal(err)
		}
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text := string(data)
	a, b, c := strings.Index(text, "aaa:"), strings.Index(text, "bbb:"), strings.Index(text, "ccc:")
	if a < 0 || !(a < b && b < c) {
		t.Fatalf("keys not sorted in output:\n%s", text)
	}
	if got := m.Entries(); got[0].Hash != "aaa" || got[2].Hash != "ccc" {
		t.Fatalf("Entries not sorted: %+v", got)
	}
}

func TestUnmarshalKeyMismatch(t *testing.T) {
	_, err := Unmarshal([]byte("abc:\n  hash: xyz\n  format: PNG\n"))
	if !errors.Is(err, errKeyMismatch) {
		t.Fatalf("expected key mismatch, got %v", err)
	}
}

func TestCanonicalName(t *testing.T) {
	if got := CanonicalName("deadbeef", "JPEG"); got != "deadbeef.JPEG" {
		t.Fatalf("CanonicalName = %q", got)
	}
}
