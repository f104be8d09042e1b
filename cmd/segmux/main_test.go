package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"segmux/internal/config"
	"segmux/internal/history"
	"segmux/internal/staging"
	"segmux/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	cfg.Logging.Level = "error"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "segmux.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeManifest(t *testing.T, dir, baseURL string) string {
	t.Helper()
	content := fmt.Sprintf(`title = "Pilot"
output = "pilot"
base_url = %q

[[tracks]]
id = "video"
kind = "video"
bitrate = 4000000
duration_seconds = 60
frame_rate = 25
segments = [{ url = "v/0.ts" }, { url = "v/1.ts" }]

[[tracks]]
id = "audio-ja"
kind = "audio"
locale = "ja-JP"
bitrate = 128000
duration_seconds = 60
url = "a/ja.aac"
`, baseURL)
	path := filepath.Join(dir, "job.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, cfg.Paths.TempDir)
	requireContains(t, out, "[sync]")
}

func TestDepsCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, []string{"deps"}, writeTestConfig(t, cfg))
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "available")

	cfg = testsupport.NewConfig(t)
	cfg.Mux.FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	out, _, err = runCLI(t, []string{"deps"}, writeTestConfig(t, cfg))
	if err == nil {
		t.Fatal("expected missing ffmpeg to fail")
	}
	requireContains(t, out, "missing")
}

func TestPlanPrintsInvocation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	manifest := writeManifest(t, t.TempDir(), "http://media.invalid/show/")

	out, _, err := runCLI(t, []string{"plan", manifest}, configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "-map 0")
	requireContains(t, out, "-map 1")
	requireContains(t, out, "-f matroska")
	requireContains(t, out, filepath.Join(cfg.Paths.OutputDir, "pilot.mkv"))

	out, _, err = runCLI(t, []string{"--json", "plan", manifest, "-o", "-"}, configPath)
	if err != nil {
		t.Fatalf("plan json: %v", err)
	}
	requireContains(t, out, `"format": "mpegts"`)
}

func TestPreflightReportsEstimate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	manifest := writeManifest(t, t.TempDir(), "http://media.invalid/show/")

	out, _, err := runCLI(t, []string{"preflight", manifest}, configPath)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	requireContains(t, out, "Temp directory")
	requireContains(t, out, "Estimated size: 31 MB")
}

func TestDownloadFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	manifest := writeManifest(t, t.TempDir(), srv.URL+"/show/")

	_, _, err := runCLI(t, []string{"download", manifest}, configPath)
	if err == nil {
		t.Fatal("expected download to fail")
	}
	requireContains(t, err.Error(), "404")

	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "pilot.mkv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output exists after failed download: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Pilot")
	requireContains(t, out, "failed")
	requireContains(t, out, "fetch")
}

func TestHistoryListsAndPrunes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	old := history.Job{ID: "old-job-0001", Ref: "old.toml", Title: "Old", StartedAt: time.Now().Add(-72 * time.Hour)}
	if err := store.Start(ctx, old); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Finish(ctx, old.ID, "/out/old.mkv", 1<<20, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "old-job-")
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"--json", "history"}, configPath)
	if err != nil {
		t.Fatalf("history json: %v", err)
	}
	requireContains(t, out, `"Title": "Old"`)

	out, _, err = runCLI(t, []string{"history", "--prune", "24h"}, configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Pruned 1 jobs")
}

func TestCleanRemovesStaleWorkspaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	stale := filepath.Join(cfg.Paths.TempDir, staging.Prefix+"stale")
	testsupport.WriteFile(t, filepath.Join(stale, "00-video-v.ts"), 2048)
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fresh := filepath.Join(cfg.Paths.TempDir, staging.Prefix+"fresh")
	testsupport.WriteFile(t, filepath.Join(fresh, "00-video-v.ts"), 16)
	unrelated := filepath.Join(cfg.Paths.TempDir, "keep-me")
	testsupport.WriteFile(t, unrelated, 16)

	out, _, err := runCLI(t, []string{"clean", "--list"}, configPath)
	if err != nil {
		t.Fatalf("clean --list: %v", err)
	}
	requireContains(t, out, "Total: 2 workspaces")

	out, _, err = runCLI(t, []string{"clean"}, configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 1 workspaces")
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale workspace still present: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh workspace removed: %v", err)
	}

	ws, err := staging.NewWorkspace(cfg.Paths.TempDir, "running")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer ws.Close()
	out, _, err = runCLI(t, []string{"clean", "--all"}, configPath)
	if err != nil {
		t.Fatalf("clean --all: %v", err)
	}
	requireContains(t, out, "skipped 1 in use")
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{12 * time.Second, "12s"},
		{3*time.Minute + 5*time.Second, "3m05s"},
		{62 * time.Minute, "1h02m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := formatOffset(-1500 * time.Millisecond); got != "-1.500s" {
		t.Errorf("formatOffset = %q", got)
	}
}
