// Package ratelog throttles repetitive diagnostics so that a misbehaving client hammering
// the table with stale handles cannot flood the log.
package ratelog

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

// Logger emits at most burst records per interval. Records that are dropped are counted
// and reported on the next record that gets through.
type Logger struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// New creates a Logger that writes to logger at most burst times per interval
func New(logger *slog.Logger, interval time.Duration, burst int) *Logger {
	return &Logger{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// LogAttrs writes the record if the limiter allows it and returns whether it was written
func (l *Logger) LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) bool {
	if !l.logger.Enabled(ctx, level) {
		return false
	}

	if !l.limiter.Allow() {
		l.suppressed.Add(1)
		return false
	}

	if suppressed := l.suppressed.Swap(0); suppressed > 0 {
		attrs = append(attrs, slog.Int64("suppressed", suppressed))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
	return true
}

// Suppressed returns the number of records dropped since the last one was written
func (l *Logger) Suppressed() int64 {
	return l.suppressed.Load()
}
