package main

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testConfig() Config {
	return Config{
		Clients:    4,
		Iterations: 50,
		Devices:    2,
		CrashRate:  0.2,
		Capacity:   32,
		LogLevel:   "INFO",
		Seed:       42,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Clients)
	require.Equal(t, 1000, cfg.Iterations)
	require.Equal(t, 3, cfg.Devices)
	require.Equal(t, 128, cfg.Capacity)
	require.Equal(t, 0.05, cfg.CrashRate)
	require.False(t, cfg.Detailed)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("HDLSTRESS_CLIENTS", "3")
	t.Setenv("HDLSTRESS_CAPACITY", "16")
	t.Setenv("HDLSTRESS_LOG_LEVEL", "debug")
	t.Setenv("HDLSTRESS_DETAILED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Clients)
	require.Equal(t, 16, cfg.Capacity)
	require.True(t, cfg.Detailed)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.Capacity = 300
	require.True(t, errors.Is(cfg.Validate(), hdlutils.ErrOutOfRange))

	cfg = testConfig()
	cfg.Devices = cfg.Capacity
	require.True(t, errors.Is(cfg.Validate(), hdlutils.ErrOutOfRange))

	cfg = testConfig()
	cfg.CrashRate = 1.5
	require.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.LogLevel = "LOUD"
	require.Error(t, cfg.Validate())
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	report, err := Run(context.Background(), logger, testConfig())
	require.NoError(t, err)

	require.Positive(t, report.Sessions)
	require.Positive(t, report.Crashed)
	require.LessOrEqual(t, report.Swept, 4*4)

	var stats struct {
		Total struct {
			Capacity      int
			Active        int
			HighWaterMark int
		}
		Lifetime struct {
			Created   int
			Destroyed int
			Swept     int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(report.Stats), &stats))
	require.Equal(t, 32, stats.Total.Capacity)
	require.Equal(t, 0, stats.Total.Active)
	require.LessOrEqual(t, stats.Total.HighWaterMark, 32)
	require.Equal(t, report.Swept, stats.Lifetime.Swept)
	require.Equal(t, stats.Lifetime.Created, stats.Lifetime.Destroyed+stats.Lifetime.Swept)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())
	require.NoError(t, err)
	require.Zero(t, report.Sessions)
}
