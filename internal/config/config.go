// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package config

import (
	"fmt"
	"time"
)

// HorizonLayout is the date format of engine.snapshot_horizon.
const HorizonLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Engine   EngineConfig   `koanf:"engine"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// EngineConfig controls fact computation.
type EngineConfig struct {
	// SnapshotHorizon is the as-of date in YYYY-MM-DD. Empty means today (UTC)
	// at the start of each run.
	SnapshotHorizon string `koanf:"snapshot_horizon"`

	// Parallelism bounds concurrent partition work (0 = NumCPU)
	Parallelism int `koanf:"parallelism"`
}

// PipelineConfig controls when the pipeline runs.
type PipelineConfig struct {
	// Interval between scheduled runs. Zero runs once at startup only.
	Interval time.Duration `koanf:"interval"`

	// Timeout bounds a single run end to end
	Timeout time.Duration `koanf:"timeout"`

	RunOnStartup bool `koanf:"run_on_startup"`

	// SourceBreakerFailures opens the input circuit after this many
	// consecutive load failures (0 = disabled)
	SourceBreakerFailures uint32 `koanf:"source_breaker_failures"`

	// SourceBreakerTimeout is how long the circuit stays open before a trial load
	SourceBreakerTimeout time.Duration `koanf:"source_breaker_timeout"`
}

type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // DuckDB threads (0 = NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // keep input row order in scans
}

type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Horizon parses SnapshotHorizon. A zero time means "today at run time".
func (e EngineConfig) Horizon() (time.Time, error) {
	if e.SnapshotHorizon == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(HorizonLayout, e.SnapshotHorizon)
	if err != nil {
		return time.Time{}, fmt.Errorf("SNAPSHOT_HORIZON must be a date in YYYY-MM-DD format: %w", err)
	}
	return t, nil
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
