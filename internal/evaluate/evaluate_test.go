package evaluate_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"picgaz/internal/contenthash"
	"picgaz/internal/evaluate"
	"picgaz/internal/inspect"
	"picgaz/internal/testsupport"
)

func newEvaluator(t *testing.T, inspector inspect.Inspector, minBorderPx int) *evaluate.Evaluator {
	t.Helper()
	hasher, err := contenthash.New("md5", 1024)
	if err != nil {
		t.Fatalf("contenthash.New: %v", err)
	}
	return evaluate.New(hasher, inspector, minBorderPx, nil)
}

type stubInspector struct {
	info inspect.Info
	err  error
	fn   func(path string) (inspect.Info, error)
}

func (s stubInspector) Inspect(path string) (inspect.Info, error) {
	if s.fn != nil {
		return s.fn(path)
	}
	return s.info, s.err
}

func TestThresholdBoundary(t *testing.T) {
	dir := t.TempDir()
	equal := filepath.Join(dir, "equal.png")
	short := filepath.Join(dir, "short.png")
	testsupport.WritePNG(t, equal, 400, 300, 1)
	testsupport.WritePNG(t, short, 400, 299, 2)

	eval := newEvaluator(t, nil, 300)

	accepted := eval.Evaluate(equal)
	if !accepted.Accepted() {
		t.Fatalf("expected short side equal to threshold to be accepted, got %s (%v)", accepted.Reason, accepted.Err)
	}
	if accepted.Entry.Format != "PNG" || accepted.Entry.Width != 400 || accepted.Entry.Height != 300 {
		t.Fatalf("unexpected entry: %+v", accepted.Entry)
	}
	if accepted.Entry.RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to be set")
	}

	rejected := eval.Evaluate(short)
	if rejected.Accepted() || rejected.Reason != evaluate.ReasonBelowThreshold {
		t.Fatalf("expected below_threshold, got %q", rejected.Reason)
	}
}

func TestEntryHashMatchesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	data := testsupport.WriteJPEG(t, path, 64, 48, 7)

	result := newEvaluator(t, nil, 0).Evaluate(path)
	if !result.Accepted() {
		t.Fatalf("expected accepted, got %s (%v)", result.Reason, result.Err)
	}
	hasher, _ := contenthash.New("md5", 0)
	if want := hasher.HashBytes(data); result.Entry.Hash != want {
		t.Fatalf("hash = %s, want %s", result.Entry.Hash, want)
	}
	if result.Entry.Format != "JPEG" || result.Entry.Size != int64(len(data)) {
		t.Fatalf("unexpected entry: %+v", result.Entry)
	}
}

func TestMissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	eval := newEvaluator(t, nil, 0)

	if got := eval.Evaluate(filepath.Join(dir, "gone.png")); got.Reason != evaluate.ReasonMissing {
		t.Fatalf("expected missing for absent file, got %q", got.Reason)
	}
	if got := eval.Evaluate(dir); got.Reason != evaluate.ReasonMissing {
		t.Fatalf("expected missing for directory, got %q", got.Reason)
	}
}

func TestUndecodable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	testsupport.WriteBytes(t, path, []byte("definitely not an image"))

	got := newEvaluator(t, nil, 0).Evaluate(path)
	if got.Reason != evaluate.ReasonUndecodable {
		t.Fatalf("expected undecodable, got %q", got.Reason)
	}
	if !errors.Is(got.Err, inspect.ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", got.Err)
	}
}

func TestInspectorFailureMapsToIOFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	testsupport.WriteFile(t, path, 10)

	eval := newEvaluator(t, stubInspector{err: errors.New("device not ready")}, 0)
	if got := eval.Evaluate(path); got.Reason != evaluate.ReasonIOFailure {
		t.Fatalf("expected io_failure, got %q", got.Reason)
	}
}

func TestEmptyFormatIsUndecodable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	testsupport.WriteFile(t, path, 10)

	eval := newEvaluator(t, stubInspector{info: inspect.Info{Width: 10, Height: 10}}, 0)
	if got := eval.Evaluate(path); got.Reason != evaluate.ReasonUndecodable {
		t.Fatalf("expected undecodable, got %q", got.Reason)
	}
}

func TestInspectorPanicIsContained(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	testsupport.WriteFile(t, path, 10)

	eval := newEvaluator(t, stubInspector{fn: func(string) (inspect.Info, error) {
		panic("corrupt header")
	}}, 0)
	if got := eval.Evaluate(path); got.Reason != evaluate.ReasonUndecodable {
		t.Fatalf("expected undecodable after panic, got %q", got.Reason)
	}
}

func TestEvaluateAllPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 12; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img-%02d.png", i))
		if i%3 == 0 {
			testsupport.WriteBytes(t, path, []byte("junk"))
		} else {
			testsupport.WritePNG(t, path, 20+i, 20, uint8(i))
		}
		paths = append(paths, path)
	}

	results, err := newEvaluator(t, nil, 0).EvaluateAll(context.Background(), paths, 4)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, result := range results {
		if result.Path != paths[i] {
			t.Fatalf("result %d is for %s, want %s", i, result.Path, paths[i])
		}
		if wantAccepted := i%3 != 0; result.Accepted() != wantAccepted {
			t.Fatalf("result %d accepted=%v, want %v", i, result.Accepted(), wantAccepted)
		}
		if result.Accepted() && result.Entry.Width != 20+i {
			t.Fatalf("result %d width=%d", i, result.Entry.Width)
		}
	}
}

func TestEvaluateAllCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	testsupport.WritePNG(t, path, 10, 10, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := newEvaluator(t, nil, 0).EvaluateAll(ctx, []string{path}, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results on cancellation, got %d", len(results))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("source must be untouched: %v", err)
	}
}
