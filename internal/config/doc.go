// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package config loads Stride configuration with koanf.

Sources are layered, later ones winning:

 1. Built-in defaults
 2. A YAML file: $CONFIG_PATH, else config.yaml or /etc/stride/config.yaml
 3. Environment variables

# Environment Variables

Engine:
  - SNAPSHOT_HORIZON: as-of date, YYYY-MM-DD (default: today UTC)
  - ENGINE_PARALLELISM: concurrent partition workers (default: NumCPU)

Pipeline:
  - PIPELINE_INTERVAL: time between runs, 0 to run once (default: 1h)
  - PIPELINE_TIMEOUT: per-run deadline (default: 10m)
  - PIPELINE_RUN_ON_STARTUP: run immediately when serving (default: true)
  - SOURCE_BREAKER_FAILURES: consecutive load failures before runs fail fast (default: 3, 0 disables)
  - SOURCE_BREAKER_TIMEOUT: open circuit wait before a trial load (default: 5m)

Database:
  - DUCKDB_PATH: database file (default: /data/stride.duckdb)
  - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
  - DUCKDB_THREADS: DuckDB worker threads (default: NumCPU)
  - DUCKDB_PRESERVE_INSERTION_ORDER (default: true)

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8380)
  - SERVER_TIMEOUT (default: 30s)
  - RATE_LIMIT_REQS, RATE_LIMIT_WINDOW (default: 100 per 1m)
  - CORS_ORIGINS: comma-separated (default: *)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example YAML

	engine:
	  snapshot_horizon: "2024-12-31"
	pipeline:
	  interval: 6h
	database:
	  path: ./stride.duckdb
	logging:
	  level: debug
	  format: console
*/
package config
