package preflight

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"segmux/internal/media"
)

func stubStatfs(t *testing.T, stats map[string][2]uint64) {
	t.Helper()
	orig := statfs
	t.Cleanup(func() { statfs = orig })
	statfs = func(path string) (uint64, uint64, error) {
		s, ok := stats[path]
		if !ok {
			return 0, 0, errors.New("no such volume")
		}
		return s[0], s[1], nil
	}
}

func sampleTracks() []media.Track {
	return []media.Track{
		{Kind: media.KindVideo, Bitrate: 8_000_000, Duration: 24 * time.Minute},
		{Kind: media.KindAudio, Bitrate: 192_000, Duration: 24 * time.Minute},
		{Kind: media.KindAudio, Bitrate: 192_000, Duration: 24 * time.Minute},
	}
}

func TestEstimateBytesIsDeterministic(t *testing.T) {
	tracks := sampleTracks()
	first := EstimateBytes(tracks)
	if first != 1_440_000_000+2*34_560_000 {
		t.Fatalf("EstimateBytes = %d", first)
	}
	for range 5 {
		if got := EstimateBytes(tracks); got != first {
			t.Fatalf("EstimateBytes changed: %d != %d", got, first)
		}
	}
}

func TestCheckSpaceSameVolumeDoublesRequirement(t *testing.T) {
	tempDir := t.TempDir()
	destDir := t.TempDir()
	tracks := sampleTracks()
	estimate := EstimateBytes(tracks)
	free := estimate * 3 / 2
	stubStatfs(t, map[string][2]uint64{
		tempDir: {1 << 40, free},
		destDir: {1 << 40, free - 4<<20},
	})

	report, err := CheckSpace(context.Background(), tracks, tempDir, filepath.Join(destDir, "missing", "out.mkv"))
	if err != nil {
		t.Fatalf("CheckSpace: %v", err)
	}
	if !report.SameVolume {
		t.Fatal("expected same volume detection")
	}
	if report.RequiredTemp != 2*estimate || report.RequiredDestination != 2*estimate {
		t.Fatalf("requirements not doubled: %+v", report)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", report.Warnings)
	}
	if report.Warnings[0].Kind != WarnTempSpace || report.Warnings[1].Kind != WarnDestinationSpace {
		t.Fatalf("unexpected warning kinds: %v", report.Warnings)
	}
	if report.Destination.Path != destDir {
		t.Fatalf("destination resolved to %q, want %q", report.Destination.Path, destDir)
	}
}

func TestCheckSpaceSeparateVolumes(t *testing.T) {
	tempDir := t.TempDir()
	destDir := t.TempDir()
	tracks := sampleTracks()
	estimate := EstimateBytes(tracks)
	stubStatfs(t, map[string][2]uint64{
		tempDir: {1 << 40, estimate * 3 / 2},
		destDir: {1 << 41, estimate / 2},
	})

	report, err := CheckSpace(context.Background(), tracks, tempDir, destDir)
	if err != nil {
		t.Fatal(err)
	}
	if report.SameVolume {
		t.Fatal("volumes with different capacity should not be merged")
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != WarnDestinationSpace {
		t.Fatalf("expected one destination warning, got %v", report.Warnings)
	}
}

func TestCheckSpaceFreeDifferenceBeyondSlack(t *testing.T) {
	a := VolumeStat{Total: 1 << 40, Free: 100 << 20}
	b := VolumeStat{Total: 1 << 40, Free: 200 << 20}
	if sameVolume(a, b) {
		t.Fatal("free space differing by 100 MiB should not be the same volume")
	}
	b.Free = a.Free + sameVolumeSlack
	if !sameVolume(a, b) {
		t.Fatal("difference within slack should be the same volume")
	}
}

func TestCheckSpaceNoWarningsWhenPlentiful(t *testing.T) {
	dir := t.TempDir()
	stubStatfs(t, map[string][2]uint64{dir: {1 << 42, 1 << 41}})
	report, err := CheckSpace(context.Background(), sampleTracks(), dir, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestCheckSpaceStatfsError(t *testing.T) {
	stubStatfs(t, map[string][2]uint64{})
	if _, err := CheckSpace(context.Background(), sampleTracks(), t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("expected statfs error")
	}
}

func TestNearestExistingDir(t *testing.T) {
	root := t.TempDir()
	if got := NearestExistingDir(filepath.Join(root, "a", "b", "c.mkv")); got != root {
		t.Fatalf("NearestExistingDir = %q, want %q", got, root)
	}
}
