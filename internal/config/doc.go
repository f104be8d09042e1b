// Package config loads, normalizes, and validates segmux configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SEGMUX_TEMP_DIR and SEGMUX_FFMPEG. The Config type centralizes every knob the
// download, sync, and mux stages need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
