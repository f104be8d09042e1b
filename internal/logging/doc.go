// Package logging assembles structured slog loggers and formatting helpers used
// across segmux.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context helpers so pipeline code can tag log lines with job IDs,
// track IDs, and stage names. Console output is written to stderr because
// stdout may carry muxed media.
package logging
