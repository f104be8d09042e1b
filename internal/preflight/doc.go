// Package preflight runs the checks a job performs before downloading.
//
// CheckSpace estimates the bytes a job will write from track bitrates and
// durations and compares that against free space at the temp directory and
// the destination. Shortfalls are warnings only. The directory access and
// dependency checks back the preflight and deps CLI commands.
package preflight
