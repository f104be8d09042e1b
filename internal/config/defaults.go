package config

import (
	"os"
	"path/filepath"
)

const (
	defaultOutputDir          = "~/Videos"
	defaultLogDir             = "~/.local/share/segmux/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMaxAttempts        = 5
	defaultRequestTimeout     = 60
	defaultUserAgent          = "segmux/dev"
	defaultProgressIntervalMS = 100
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultFPcalcBinary       = "fpcalc"
	defaultPreset             = "copy"
	defaultOutputFormat       = "mkv"
	defaultFrameRate          = 23.976
	defaultSyncTolerance      = 6
	defaultSweepCount         = 16
	defaultMissingPolicy      = "warn"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:   defaultTempDir(),
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			MaxAttempts:           defaultMaxAttempts,
			RequestTimeoutSeconds: defaultRequestTimeout,
			UserAgent:             defaultUserAgent,
			Headers:               map[string]string{},
			ProgressIntervalMS:    defaultProgressIntervalMS,
		},
		Mux: Mux{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			Preset:           defaultPreset,
			OutputFormat:     defaultOutputFormat,
			DefaultFrameRate: defaultFrameRate,
		},
		Sync: Sync{
			Tolerance:    defaultSyncTolerance,
			SweepCount:   defaultSweepCount,
			FPcalcBinary: defaultFPcalcBinary,
		},
		Locale: Locale{
			MissingPolicy: defaultMissingPolicy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTempDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && base != "" {
		return filepath.Join(base, "segmux", "tmp")
	}
	return os.TempDir()
}
