package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Download contains segment retrieval settings.
type Download struct {
	// Workers is the fixed worker pool size per track. Zero means one worker
	// per logical CPU.
	Workers               int               `toml:"workers"`
	MaxAttempts           int               `toml:"max_attempts"`
	RetryBackoffMillis    int               `toml:"retry_backoff_ms"`
	RequestTimeoutSeconds int               `toml:"request_timeout_seconds"`
	UserAgent             string            `toml:"user_agent"`
	Headers               map[string]string `toml:"headers"`
	Proxy                 string            `toml:"proxy"`
	Progress              bool              `toml:"progress"`
	ProgressIntervalMS    int               `toml:"progress_interval_ms"`
}

// Mux contains settings for the external multiplexer.
type Mux struct {
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	FFprobeBinary    string  `toml:"ffprobe_binary"`
	Preset           string  `toml:"preset"`
	OutputFormat     string  `toml:"output_format"`
	DefaultSubtitle  string  `toml:"default_subtitle"`
	ForceHardsub     bool    `toml:"force_hardsub"`
	DefaultFrameRate float64 `toml:"default_frame_rate"`
}

// Sync contains audio synchronization settings.
type Sync struct {
	Enabled bool `toml:"enabled"`
	// Tolerance is the maximum number of differing bits between two
	// fingerprint tokens that still count as a match.
	Tolerance int `toml:"tolerance"`
	// SweepCount and SweepStepMillis control the refinement pass. A zero step
	// spreads the sweep evenly across one token duration.
	SweepCount      int    `toml:"sweep_count"`
	SweepStepMillis int    `toml:"sweep_step_ms"`
	FPcalcBinary    string `toml:"fpcalc_binary"`
}

// Locale contains track selection preferences.
type Locale struct {
	Audio         []string `toml:"audio"`
	Subtitle      []string `toml:"subtitle"`
	MissingPolicy string   `toml:"missing_policy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for segmux.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Mux      Mux      `toml:"mux"`
	Sync     Sync     `toml:"sync"`
	Locale   Locale   `toml:"locale"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/segmux/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("segmux.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the temp and log directories. The output
// directory is created lazily per job because destinations may be overridden.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryBackoff returns the configured delay between fetch attempts.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Download.RetryBackoffMillis) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Download.RequestTimeoutSeconds) * time.Second
}

// ProgressInterval returns the progress sampling interval.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Download.ProgressIntervalMS) * time.Millisecond
}

// SweepStep returns the refinement step, or zero when it should be derived
// from the token duration.
func (c *Config) SweepStep() time.Duration {
	return time.Duration(c.Sync.SweepStepMillis) * time.Millisecond
}

// HistoryPath returns the location of the job history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the resolved configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
