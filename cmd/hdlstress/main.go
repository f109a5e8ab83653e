// Command hdlstress hammers a handle table with concurrent clients that open and close sessions,
// devices, and links, some of which abandon their handles. It reports the table's statistics once
// every client has exited and the leftovers have been swept.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/exp/slog"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hdlstress: %+v\n", err)
		os.Exit(2)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting stress run",
		slog.Int("clients", cfg.Clients),
		slog.Int("iterations", cfg.Iterations),
		slog.Int("devices", cfg.Devices),
		slog.Int("capacity", cfg.Capacity),
		slog.Float64("crashRate", cfg.CrashRate))

	report, err := Run(ctx, logger, cfg)
	if err != nil {
		logger.Error("stress run failed", slog.Any("error", err))
		if report.Stats != "" {
			fmt.Println(report.Stats)
		}
		os.Exit(1)
	}

	logger.Info("stress run complete",
		slog.Int64("sessions", report.Sessions),
		slog.Int64("released", report.Released),
		slog.Int64("crashed", report.Crashed),
		slog.Int64("reaped", report.Reaped),
		slog.Int64("tableFull", report.TableFull),
		slog.Int("swept", report.Swept))

	fmt.Println(report.Stats)
}
