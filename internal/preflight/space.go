package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"segmux/internal/media"
)

// sameVolumeSlack is the largest free-space difference at which two paths with
// identical capacity are treated as one volume.
const sameVolumeSlack = 16 << 20

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

var statfs statfsFunc = realStatfs

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// WarningKind distinguishes which location is short on space.
type WarningKind string

const (
	WarnTempSpace        WarningKind = "temp_space"
	WarnDestinationSpace WarningKind = "destination_space"
)

// Warning is a non-fatal disk-space shortfall.
type Warning struct {
	Kind      WarningKind
	Path      string
	Required  uint64
	Available uint64
}

func (w Warning) String() string {
	where := "temp"
	if w.Kind == WarnDestinationSpace {
		where = "destination"
	}
	return fmt.Sprintf("%s %s needs %s but only %s is free",
		where, w.Path, humanize.Bytes(w.Required), humanize.Bytes(w.Available))
}

// VolumeStat holds capacity figures for one filesystem.
type VolumeStat struct {
	Path  string
	Total uint64
	Free  uint64
}

// SpaceReport summarizes the disk-space preflight.
type SpaceReport struct {
	EstimatedBytes      uint64
	Temp                VolumeStat
	Destination         VolumeStat
	SameVolume          bool
	RequiredTemp        uint64
	RequiredDestination uint64
	Warnings            []Warning
}

// EstimateBytes returns the sum of bitrate/8 × duration over all tracks.
func EstimateBytes(tracks []media.Track) uint64 {
	var total uint64
	for _, t := range tracks {
		total += t.EstimatedBytes()
	}
	return total
}

// CheckSpace compares the estimated job size against free space at the temp
// directory and at the nearest existing ancestor of destination. When both
// resolve to the same volume each requirement is doubled, since temp files and
// the final artifact draw from the same pool. The report only carries
// warnings; callers never block on it. An error means a location could not be
// inspected at all.
func CheckSpace(ctx context.Context, tracks []media.Track, tempDir, destination string) (SpaceReport, error) {
	if err := ctx.Err(); err != nil {
		return SpaceReport{}, err
	}
	estimate := EstimateBytes(tracks)
	report := SpaceReport{
		EstimatedBytes:      estimate,
		RequiredTemp:        estimate,
		RequiredDestination: estimate,
	}

	tempTotal, tempFree, err := statfs(tempDir)
	if err != nil {
		return report, fmt.Errorf("preflight: statfs %s: %w", tempDir, err)
	}
	report.Temp = VolumeStat{Path: tempDir, Total: tempTotal, Free: tempFree}

	destDir := NearestExistingDir(destination)
	destTotal, destFree, err := statfs(destDir)
	if err != nil {
		return report, fmt.Errorf("preflight: statfs %s: %w", destDir, err)
	}
	report.Destination = VolumeStat{Path: destDir, Total: destTotal, Free: destFree}

	report.SameVolume = sameVolume(report.Temp, report.Destination)
	if report.SameVolume {
		report.RequiredTemp *= 2
		report.RequiredDestination *= 2
	}

	if report.Temp.Free < report.RequiredTemp {
		report.Warnings = append(report.Warnings, Warning{
			Kind: WarnTempSpace, Path: tempDir, Required: report.RequiredTemp, Available: report.Temp.Free,
		})
	}
	if report.Destination.Free < report.RequiredDestination {
		report.Warnings = append(report.Warnings, Warning{
			Kind: WarnDestinationSpace, Path: destDir, Required: report.RequiredDestination, Available: report.Destination.Free,
		})
	}
	return report, nil
}

func sameVolume(a, b VolumeStat) bool {
	if a.Total != b.Total {
		return false
	}
	diff := a.Free - b.Free
	if b.Free > a.Free {
		diff = b.Free - a.Free
	}
	return diff <= sameVolumeSlack
}

// NearestExistingDir walks up from path to the closest directory that exists.
func NearestExistingDir(path string) string {
	if path == "" {
		path = "."
	}
	current, err := filepath.Abs(path)
	if err != nil {
		current = filepath.Clean(path)
	}
	for {
		if info, err := os.Stat(current); err == nil && info.IsDir() {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}
