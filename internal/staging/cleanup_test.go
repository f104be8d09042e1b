package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"segmux/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, Prefix+"old")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, Prefix+"recent")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	unrelated := filepath.Join(tmpDir, "someone-else")
	if err := os.Mkdir(unrelated, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(unrelated, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("removed = %v, want [%s]", result.Removed, oldDir)
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent workspace should still exist")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("directories without the segmux prefix must never be touched")
	}
}

func TestCleanStaleSkipsLockedWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	ws, err := NewWorkspace(tmpDir, "running")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer ws.Close()

	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())
	if len(result.Removed) != 0 || len(result.Skipped) != 1 {
		t.Fatalf("result = %+v, want locked workspace skipped", result)
	}
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Fatal("locked workspace should survive cleanup")
	}
}

func TestCleanStaleRemovesPrefixedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	leftover := filepath.Join(tmpDir, Prefix+"output.mkv")
	if err := os.WriteFile(leftover, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())
	if len(result.Removed) != 1 {
		t.Fatalf("removed = %v", result.Removed)
	}
}

func TestWorkspaceLifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	ws, err := NewWorkspace(tmpDir, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(ws.Dir) != Prefix+"job-1" {
		t.Fatalf("workspace dir = %q", ws.Dir)
	}
	if err := os.WriteFile(ws.Path("video.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewWorkspace(tmpDir, "job-1"); !errors.Is(err, ErrWorkspaceBusy) {
		t.Fatalf("second lock = %v, want ErrWorkspaceBusy", err)
	}

	dirs, err := ListWorkspaces(tmpDir)
	if err != nil || len(dirs) != 1 || dirs[0].Size == 0 {
		t.Fatalf("ListWorkspaces = %+v, %v", dirs, err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatal("workspace should be removed on close")
	}
}
