// Package job runs one download from catalog reference to muxed output file.
//
// A job moves through named stages: resolve, select, preflight, download,
// sync, and mux. Every stage logs a start and completion event tagged with the
// job id, so a single job can be followed through the structured logs. Track
// files live in a locked workspace under the temp dir that is removed when the
// job ends, whatever the outcome.
package job
