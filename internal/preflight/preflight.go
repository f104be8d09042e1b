package preflight

import (
	"segmux/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for a job writing to destination.
func RunAll(cfg *config.Config, destination string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir)}
	if destination != "" && destination != "-" {
		results = append(results, CheckDirectoryAccess("Destination directory", NearestExistingDir(destination)))
	}
	return results
}
