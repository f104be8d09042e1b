package mux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"segmux/internal/deps"
	"segmux/internal/fileutil"
	"segmux/internal/logging"
	"segmux/internal/staging"
)

var commandContext = exec.CommandContext

// Runner executes a Plan with ffmpeg.
type Runner struct {
	FFmpeg string
	// TempDir holds the progress pipe.
	TempDir string
	// Stdin feeds an input planned as StdioPath.
	Stdin io.Reader
	// Stdout receives the muxed stream when the output path is StdioPath.
	Stdout io.Writer
	Logger *slog.Logger
}

// Run invokes ffmpeg for plan and reports progress through the callback.
// Progress is read from a named pipe passed with -progress; when ffmpeg exits
// or ctx is cancelled the reader is stopped and 100% is reported. A file
// output is written to a hidden sibling and renamed into place only on
// success, so a failed run leaves nothing at the destination.
func (r *Runner) Run(ctx context.Context, plan Plan, progress func(Progress)) error {
	logger := logging.NewComponentLogger(r.Logger, "mux")
	if progress == nil {
		progress = func(Progress) {}
	}

	binary, err := deps.Resolve(r.FFmpeg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrToolMissing, err)
	}

	toStdout := plan.OutputPath == StdioPath
	target := StdioPath
	if !toStdout {
		if err := os.MkdirAll(filepath.Dir(plan.OutputPath), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		target = filepath.Join(filepath.Dir(plan.OutputPath), staging.Prefix+filepath.Base(plan.OutputPath))
	}

	tempDir := r.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	fifo := filepath.Join(tempDir, staging.Prefix+"progress-"+uuid.NewString())
	if err := unix.Mkfifo(fifo, 0o600); err != nil {
		return fmt.Errorf("create progress pipe: %w", err)
	}
	defer os.Remove(fifo)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if !plan.StdinInput {
		args = append(args, "-nostdin")
	}
	args = append(args, "-progress", fifo, "-nostats")
	args = append(args, plan.Args(target)...)

	var stderr bytes.Buffer
	cmd := commandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	if plan.StdinInput {
		cmd.Stdin = r.Stdin
	}
	if toStdout {
		cmd.Stdout = r.Stdout
	}

	logger.Debug("executing ffmpeg",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
		logging.Int64("total_frames", plan.TotalFrames),
	)

	// The reader opens first without blocking; holding our own write end keeps
	// it from seeing EOF before ffmpeg connects. Closing that end after ffmpeg
	// exits ends the scan once buffered lines drain.
	reader, err := os.OpenFile(fifo, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open progress pipe: %w", err)
	}
	holder, err := os.OpenFile(fifo, os.O_WRONLY, 0)
	if err != nil {
		reader.Close()
		return fmt.Errorf("open progress pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		reader.Close()
		holder.Close()
		return fmt.Errorf("%w: start ffmpeg: %w", ErrToolMissing, err)
	}

	frames := make(chan int64)
	stop := make(chan struct{})
	go func() {
		defer reader.Close()
		readFrames(reader, frames, stop)
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var runErr error
loop:
	for {
		select {
		case frame := <-frames:
			progress(newProgress(frame, plan.TotalFrames))
		case runErr = <-waitErr:
			break loop
		case <-ctx.Done():
			runErr = <-waitErr
			break loop
		}
	}
	close(stop)
	holder.Close()

	if ctxErr := ctx.Err(); ctxErr != nil {
		removeTarget(target, toStdout)
		progress(Progress{Frame: plan.TotalFrames, TotalFrames: plan.TotalFrames, Percent: 100, Done: true})
		return ctxErr
	}
	if runErr != nil {
		removeTarget(target, toStdout)
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &ProcessError{Binary: filepath.Base(binary), ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return fmt.Errorf("ffmpeg: %w", runErr)
	}

	if !toStdout {
		if err := fileutil.MoveFile(target, plan.OutputPath); err != nil {
			removeTarget(target, false)
			return fmt.Errorf("move output into place: %w", err)
		}
	}
	progress(Progress{Frame: plan.TotalFrames, TotalFrames: plan.TotalFrames, Percent: 100, Done: true})
	logger.Info("mux complete",
		logging.String(logging.FieldEventType, "mux_complete"),
		logging.String("output", plan.OutputPath),
	)
	return nil
}

func removeTarget(target string, toStdout bool) {
	if !toStdout {
		_ = os.Remove(target)
	}
}
