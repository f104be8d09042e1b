// Package deps checks for the external tools segmux shells out to: ffmpeg for
// muxing, ffprobe for frame-rate inspection, and fpcalc for audio
// fingerprinting.
package deps
