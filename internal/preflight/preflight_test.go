package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picgaz/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestForPlan(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = base
	plan := config.Plan{
		Name:        "photos",
		Source:      filepath.Join(base, "src"),
		Destination: base,
	}

	results := ForPlan(&cfg, plan)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	err := Err(results)
	if err == nil || !strings.Contains(err.Error(), "Source directory") {
		t.Fatalf("expected source failure, got %v", err)
	}

	if err := os.Mkdir(plan.Source, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Err(ForPlan(&cfg, plan)); err != nil {
		t.Fatalf("expected all checks to pass, got %v", err)
	}
}

func TestForPlan_NilConfig(t *testing.T) {
	if results := ForPlan(nil, config.Plan{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}
