package ratelog

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestLoggerSuppressesBurst(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := New(logger, time.Hour, 2)
	ctx := context.Background()

	require.True(t, l.LogAttrs(ctx, slog.LevelWarn, "stale handle", slog.Int("handle", 1)))
	require.True(t, l.LogAttrs(ctx, slog.LevelWarn, "stale handle", slog.Int("handle", 2)))
	require.False(t, l.LogAttrs(ctx, slog.LevelWarn, "stale handle", slog.Int("handle", 3)))
	require.False(t, l.LogAttrs(ctx, slog.LevelWarn, "stale handle", slog.Int("handle", 4)))

	require.Equal(t, int64(2), l.Suppressed())
	require.Equal(t, 2, strings.Count(buf.String(), "stale handle"))
}

func TestLoggerReportsSuppressedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := New(logger, time.Millisecond, 1)
	ctx := context.Background()

	require.True(t, l.LogAttrs(ctx, slog.LevelWarn, "first"))
	require.False(t, l.LogAttrs(ctx, slog.LevelWarn, "dropped"))

	time.Sleep(20 * time.Millisecond)
	require.True(t, l.LogAttrs(ctx, slog.LevelWarn, "second"))

	require.Contains(t, buf.String(), "suppressed=1")
	require.Equal(t, int64(0), l.Suppressed())
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))

	l := New(logger, time.Hour, 1)
	require.False(t, l.LogAttrs(context.Background(), slog.LevelWarn, "quiet"))
	require.Equal(t, int64(0), l.Suppressed())
	require.Empty(t, buf.String())
}
