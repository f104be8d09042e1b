// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns a parsed Result; helper methods expose
// the duration, bitrate, and video frame rate the mux stage needs to estimate
// total frames.
package ffprobe
