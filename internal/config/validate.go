package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLocale(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDownload() error {
	if c.Download.Workers < 0 {
		return errors.New("download.workers must be zero (auto) or positive")
	}
	if c.Download.MaxAttempts < 1 {
		return errors.New("download.max_attempts must be at least 1")
	}
	if c.Download.RetryBackoffMillis < 0 {
		return errors.New("download.retry_backoff_ms must not be negative")
	}
	if c.Download.RequestTimeoutSeconds < 0 {
		return errors.New("download.request_timeout_seconds must not be negative")
	}
	if c.Download.ProgressIntervalMS < 0 {
		return errors.New("download.progress_interval_ms must not be negative")
	}
	return nil
}

func (c *Config) validateMux() error {
	if c.Mux.DefaultFrameRate < 0 {
		return errors.New("mux.default_frame_rate must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Tolerance < 0 || c.Sync.Tolerance > 32 {
		return errors.New("sync.tolerance must be between 0 and 32 bits")
	}
	if c.Sync.SweepCount < 1 {
		return errors.New("sync.sweep_count must be at least 1")
	}
	if c.Sync.SweepStepMillis < 0 {
		return errors.New("sync.sweep_step_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLocale() error {
	switch c.Locale.MissingPolicy {
	case "fail", "warn", "prompt":
		return nil
	default:
		return fmt.Errorf("locale.missing_policy: unsupported value %q (want fail, warn or prompt)", c.Locale.MissingPolicy)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
