// Package staging owns the per-job workspaces segmux creates under the temp
// directory and the sweep that removes workspaces left behind by interrupted
// runs. Workspaces are flock-protected so cleanup never deletes files a
// running job still needs.
package staging
