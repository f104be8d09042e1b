// Package history keeps a SQLite ledger of download jobs: what was requested,
// where it was written, how many bytes moved, and how the job ended.
//
// The database lives next to the log file and uses WAL mode so `segmux
// history` can read while a job is running. Writes retry briefly on
// SQLITE_BUSY.
package history
