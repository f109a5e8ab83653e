package main

import (
	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/cockroachdb/errors"
	"github.com/joeshaw/envdecode"
	"golang.org/x/exp/slog"
)

// Config controls a stress run. Every field can be set from the environment.
type Config struct {
	// Clients is the number of concurrent clients. ENV: HDLSTRESS_CLIENTS
	Clients int `env:"HDLSTRESS_CLIENTS,default=8"`
	// Iterations is the number of sessions each client opens in turn. ENV: HDLSTRESS_ITERATIONS
	Iterations int `env:"HDLSTRESS_ITERATIONS,default=1000"`
	// Devices is the number of device handles opened per session. ENV: HDLSTRESS_DEVICES
	Devices int `env:"HDLSTRESS_DEVICES,default=3"`
	// CrashRate is the probability that a client abandons a session. ENV: HDLSTRESS_CRASH_RATE
	CrashRate float64 `env:"HDLSTRESS_CRASH_RATE,default=0.05"`
	// Capacity is the number of slots in the table. ENV: HDLSTRESS_CAPACITY
	Capacity int `env:"HDLSTRESS_CAPACITY,default=128"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR. ENV: HDLSTRESS_LOG_LEVEL
	LogLevel string `env:"HDLSTRESS_LOG_LEVEL,default=INFO"`
	// Detailed lists every handle left in the table in the final report. ENV: HDLSTRESS_DETAILED
	Detailed bool `env:"HDLSTRESS_DETAILED,default=false"`
	// Seed seeds each client's random source; 0 picks a seed from the clock. ENV: HDLSTRESS_SEED
	Seed int64 `env:"HDLSTRESS_SEED,default=0"`
}

// LoadConfig reads the configuration from the environment, falling back to the defaults
func LoadConfig() (Config, error) {
	var cfg Config
	err := envdecode.Decode(&cfg)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, errors.Wrap(err, "failed to read configuration from the environment")
	}

	return cfg, cfg.Validate()
}

// Validate reports settings a run cannot use
func (c Config) Validate() error {
	err := hdlutils.CheckRange(c.Clients, 1, 1024, "HDLSTRESS_CLIENTS")
	if err != nil {
		return err
	}

	err = hdlutils.CheckRange(c.Iterations, 1, 1<<24, "HDLSTRESS_ITERATIONS")
	if err != nil {
		return err
	}

	err = hdlutils.CheckRange(c.Capacity, 2, codec.MaxCapacity, "HDLSTRESS_CAPACITY")
	if err != nil {
		return err
	}

	// A session needs room for itself, its devices, and its link
	err = hdlutils.CheckRange(c.Devices, 0, c.Capacity-2, "HDLSTRESS_DEVICES")
	if err != nil {
		return err
	}

	if c.CrashRate < 0 || c.CrashRate > 1 {
		return errors.Newf("HDLSTRESS_CRASH_RATE is %g, must be between 0 and 1", c.CrashRate)
	}

	_, err = c.Level()
	return err
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return level, errors.Wrapf(err, "HDLSTRESS_LOG_LEVEL %q is not a log level", c.LogLevel)
	}
	return level, nil
}
