// Package media defines the track model shared by the download, preflight,
// and mux stages.
package media
