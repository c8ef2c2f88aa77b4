package dal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"gorm.io/gorm/logger"
)

type gormStructuredLogger struct {
	logger        *slog.Logger
	SlowThreshold time.Duration
}

func newGORMLogger(handler slog.Handler, slowThreshold time.Duration) *gormStructuredLogger {
	return &gormStructuredLogger{
		logger:        slog.New(handler).With("logger", "gorm"),
		SlowThreshold: slowThreshold,
	}
}

// LogMode is a no-op, the level comes from the slog handler.
func (g *gormStructuredLogger) LogMode(logger.LogLevel) logger.Interface {
	return g
}

func (g *gormStructuredLogger) Info(ctx context.Context, s string, args ...any) {
	g.logger.InfoContext(ctx, fmt.Sprintf(s, args...))
}

func (g *gormStructuredLogger) Warn(ctx context.Context, s string, args ...any) {
	g.logger.WarnContext(ctx, fmt.Sprintf(s, args...))
}

func (g *gormStructuredLogger) Error(ctx context.Context, s string, args ...any) {
	g.logger.ErrorContext(ctx, fmt.Sprintf(s, args...))
}

func (g *gormStructuredLogger) Trace(
	ctx context.Context,
	begin time.Time,
	fc func() (sql string, rowsAffected int64),
	err error,
) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errorIsNotFound(err):
		g.logger.ErrorContext(
			ctx,
			"sql failed",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
			tint.Err(err),
		)
	case g.SlowThreshold != 0 && elapsed > g.SlowThreshold:
		g.logger.WarnContext(
			ctx,
			"slow sql",
			"elapsed", elapsed,
			"threshold", g.SlowThreshold,
			"rows", rows,
			"sql", sql,
		)
	default:
		g.logger.DebugContext(
			ctx,
			"sql completed",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	}
}

// Missing rows are an expected answer for most lookups here.
func errorIsNotFound(err error) bool {
	return errors.Is(err, logger.ErrRecordNotFound)
}
