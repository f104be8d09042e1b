// Command segmux downloads segmented, optionally encrypted media tracks
// described by a job manifest and muxes them into one container with ffmpeg.
//
// Subcommands:
//
//	download <manifest>    fetch, align, and mux one job
//	plan <manifest>        print the ffmpeg invocation without downloading
//	preflight <manifest>   check directories and disk space for a job
//	sync <audio files...>  report offsets aligning audio files
//	clean                  remove stale temp workspaces
//	history                list past jobs
//	deps                   check external tools
//	config init|show       manage the configuration file
package main
