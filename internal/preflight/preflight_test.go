package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"segmux/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
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
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if RunAll(nil, "") != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ChecksTempAndDestination(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	out := filepath.Join(t.TempDir(), "show", "season-1", "episode.mkv")

	results := RunAll(&cfg, out)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_SkipsStdoutDestination(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	if results := RunAll(&cfg, "-"); len(results) != 1 {
		t.Fatalf("expected only temp check for stdout output, got %d", len(results))
	}
}

func TestCheckSystemDepsFPcalcOptionalUnlessSync(t *testing.T) {
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[2].Optional {
		t.Fatal("fpcalc should be optional when sync is disabled")
	}
	cfg.Sync.Enabled = true
	if CheckSystemDeps(&cfg)[2].Optional {
		t.Fatal("fpcalc should be required when sync is enabled")
	}
}
