package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"segmux/internal/config"
	"segmux/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external tools for the given config. fpcalc
// is only required when audio sync is enabled.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Mux.FFmpegBinary,
			Description: "Required for muxing and fingerprint extraction",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveSibling(cfg.Mux.FFmpegBinary, cfg.Mux.FFprobeBinary, "ffprobe"),
			Description: "Reads video frame rate for mux progress",
			Optional:    true,
		},
		{
			Name:        "fpcalc",
			Command:     cfg.Sync.FPcalcBinary,
			Description: "Required for audio sync fingerprinting",
			Optional:    !cfg.Sync.Enabled,
		},
	}
	return deps.CheckBinaries(requirements)
}
