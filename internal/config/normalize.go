package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeMux()
	c.normalizeSync()
	c.normalizeLocale()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SEGMUX_TEMP_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TempDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	var err error
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() {
	if c.Download.MaxAttempts == 0 {
		c.Download.MaxAttempts = defaultMaxAttempts
	}
	if c.Download.RequestTimeoutSeconds == 0 {
		c.Download.RequestTimeoutSeconds = defaultRequestTimeout
	}
	if c.Download.ProgressIntervalMS == 0 {
		c.Download.ProgressIntervalMS = defaultProgressIntervalMS
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	c.Download.Proxy = strings.TrimSpace(c.Download.Proxy)
	if c.Download.Headers == nil {
		c.Download.Headers = map[string]string{}
	}
}

func (c *Config) normalizeMux() {
	if value, ok := os.LookupEnv("SEGMUX_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Mux.FFmpegBinary = value
	}
	c.Mux.FFmpegBinary = strings.TrimSpace(c.Mux.FFmpegBinary)
	if c.Mux.FFmpegBinary == "" {
		c.Mux.FFmpegBinary = defaultFFmpegBinary
	}
	c.Mux.FFprobeBinary = strings.TrimSpace(c.Mux.FFprobeBinary)
	if c.Mux.FFprobeBinary == "" {
		c.Mux.FFprobeBinary = defaultFFprobeBinary
	}
	c.Mux.Preset = strings.ToLower(strings.TrimSpace(c.Mux.Preset))
	if c.Mux.Preset == "" {
		c.Mux.Preset = defaultPreset
	}
	c.Mux.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Mux.OutputFormat), "."))
	if c.Mux.OutputFormat == "" {
		c.Mux.OutputFormat = defaultOutputFormat
	}
	c.Mux.DefaultSubtitle = strings.TrimSpace(c.Mux.DefaultSubtitle)
	if c.Mux.DefaultFrameRate == 0 {
		c.Mux.DefaultFrameRate = defaultFrameRate
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.SweepCount == 0 {
		c.Sync.SweepCount = defaultSweepCount
	}
	c.Sync.FPcalcBinary = strings.TrimSpace(c.Sync.FPcalcBinary)
	if c.Sync.FPcalcBinary == "" {
		c.Sync.FPcalcBinary = defaultFPcalcBinary
	}
}

func (c *Config) normalizeLocale() {
	c.Locale.Audio = trimList(c.Locale.Audio)
	c.Locale.Subtitle = trimList(c.Locale.Subtitle)
	c.Locale.MissingPolicy = strings.ToLower(strings.TrimSpace(c.Locale.MissingPolicy))
	if c.Locale.MissingPolicy == "" {
		c.Locale.MissingPolicy = defaultMissingPolicy
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
