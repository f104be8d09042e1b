package mux

import (
	"context"
	"log/slog"
	"time"

	"segmux/internal/logging"
	"segmux/internal/media/ffprobe"
)

// ProbeInput fills in Duration and FrameRate for a finished video file using
// ffprobe. Probe failures are logged and leave the input unchanged so the
// plan falls back to the configured frame rate.
func ProbeInput(ctx context.Context, ffprobeBinary string, in InputFile, logger *slog.Logger) InputFile {
	if in.Path == "" || in.Path == StdioPath {
		return in
	}
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, in.Path)
	if err != nil {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "mux"), "ffprobe failed; using default frame rate",
			"mux_probe",
			logging.String("path", in.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffprobe alongside ffmpeg for accurate progress"),
		)
		return in
	}
	if rate := result.FrameRate(); rate > 0 {
		in.FrameRate = rate
	}
	if seconds := result.DurationSeconds(); seconds > 0 && in.Duration == 0 {
		in.Duration = time.Duration(seconds * float64(time.Second))
	}
	return in
}
