package job

import (
	"context"
	"log/slog"
	"time"

	"segmux/internal/errs"
	"segmux/internal/logging"
)

const (
	stageResolve   = "resolve"
	stageSelect    = "select"
	stagePreflight = "preflight"
	stageDownload  = "download"
	stageSync      = "sync"
	stageMux       = "mux"
)

// runStage wraps fn with stage-scoped logging. fn receives a context carrying
// the stage name and a logger already tagged with the job id and stage.
func runStage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := logging.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, logger)
	started := time.Now()
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, stageLogger); err != nil {
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String("error_kind", errs.Kind(err)),
			logging.Error(err),
		)
		return err
	}

	stageLogger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
