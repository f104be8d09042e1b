package audiosync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"segmux/internal/staging"
)

// SampleRate is the rate audio is resampled to before fingerprinting.
const SampleRate = 11025

// TokenDuration is the span of audio summarised by one fingerprint token:
// 4096/3 samples at SampleRate.
const TokenDuration = time.Duration(4096 * int64(time.Second) / 3 / SampleRate)

var commandContext = exec.CommandContext

// Fingerprinter produces fingerprint tokens for the audio in path starting at
// start. A zero length fingerprints to the end of the file. Token i covers
// audio from start + i*TokenDuration.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string, start, length time.Duration) ([]uint32, error)
}

// FPcalc extracts a mono 11025 Hz window with ffmpeg and fingerprints it
// with chromaprint's fpcalc.
type FPcalc struct {
	FFmpeg  string
	Binary  string
	TempDir string
}

// Fingerprint implements Fingerprinter.
func (f FPcalc) Fingerprint(ctx context.Context, path string, start, length time.Duration) ([]uint32, error) {
	wav, err := os.CreateTemp(f.TempDir, staging.Prefix+"fp-*.wav")
	if err != nil {
		return nil, fmt.Errorf("fingerprint temp file: %w", err)
	}
	wavPath := wav.Name()
	_ = wav.Close()
	defer os.Remove(wavPath)

	if err := f.extract(ctx, path, start, length, wavPath); err != nil {
		return nil, err
	}
	return f.run(ctx, wavPath)
}

func (f FPcalc) extract(ctx context.Context, path string, start, length time.Duration, output string) error {
	binary := strings.TrimSpace(f.FFmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostdin"}
	if start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", start.Seconds()))
	}
	if length > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", length.Seconds()))
	}
	args = append(args,
		"-i", path,
		"-map", "0:a:0",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		output,
	)
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg fingerprint extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (f FPcalc) run(ctx context.Context, wavPath string) ([]uint32, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "fpcalc"
	}
	cmd := commandContext(ctx, binary, "-raw", "-length", "0", wavPath) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("fpcalc: %w", err)
	}
	for line := range strings.SplitSeq(string(output), "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, "FINGERPRINT="); ok {
			return parseFingerprint(value), nil
		}
	}
	return nil, errors.New("fpcalc: fingerprint missing")
}

// parseFingerprint accepts both the signed and unsigned renderings fpcalc
// versions use for raw tokens.
func parseFingerprint(value string) []uint32 {
	parts := strings.Split(value, ",")
	out := make([]uint32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, uint32(v))
		}
	}
	return out
}
