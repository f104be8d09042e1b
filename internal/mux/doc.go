// Package mux builds and executes the ffmpeg invocation that combines
// downloaded video, audio, and subtitle tracks into one container.
//
// BuildPlan is pure: it maps every input, writes per-stream language and title
// metadata, picks subtitle dispositions, and decides between soft subtitles
// and burning one subtitle into the video. Runner executes a Plan, streams
// frame progress from ffmpeg's -progress pipe, and surfaces ffmpeg's stderr
// verbatim on failure.
package mux
