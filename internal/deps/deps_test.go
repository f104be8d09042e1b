package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"segmux/internal/errs"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveSiblingPrefersCompanionBesideFFmpeg(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	ffprobePath := filepath.Join(tmp, executableName("ffprobe"))
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, p := range []string{ffmpegPath, ffprobePath} {
		if err := os.WriteFile(p, script, 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}

	if got := ResolveSibling(ffmpegPath, "ffprobe", "ffprobe"); got != ffprobePath {
		t.Fatalf("ResolveSibling = %q, want %q", got, ffprobePath)
	}
	if got := ResolveSibling(ffmpegPath, "/custom/ffprobe", "ffprobe"); got != "/custom/ffprobe" {
		t.Fatalf("explicit companion should win, got %q", got)
	}
}

func TestResolveSiblingFallsBackToDefault(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := ResolveSibling(ffmpegPath, "", "ffprobe"); got != "ffprobe" {
		t.Fatalf("ResolveSibling = %q, want ffprobe", got)
	}
}

func TestResolveMissingBinary(t *testing.T) {
	t.Setenv("PATH", "")
	_, err := Resolve("ffmpeg")
	if !errors.Is(err, errs.ErrExternalTool) {
		t.Fatalf("Resolve error = %v, want external tool error", err)
	}
	if _, err := Resolve(" "); err == nil {
		t.Fatal("expected error for empty command")
	}
}
