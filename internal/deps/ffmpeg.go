package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveSibling returns the companion tool installed next to a resolved
// ffmpeg binary (for example ffprobe beside /opt/ffmpeg/bin/ffmpeg). When the
// configured companion is not the bare default name, or no sibling exists, the
// configured value is returned unchanged.
func ResolveSibling(ffmpegCommand, companion, defaultName string) string {
	companion = strings.TrimSpace(companion)
	if companion != "" && companion != defaultName {
		return companion
	}
	ffmpegCommand = strings.TrimSpace(ffmpegCommand)
	if ffmpegCommand == "" {
		return defaultName
	}
	resolved, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return defaultName
	}
	candidate := filepath.Join(filepath.Dir(resolved), executableName(defaultName))
	if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
		return candidate
	}
	return defaultName
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
