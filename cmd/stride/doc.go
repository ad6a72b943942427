// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package main is the entry point for the Stride cohort analytics service.

Stride reads users, subscription records and activity events from DuckDB,
computes the membership, retention, churn, engagement and lifetime value fact
sets, and publishes them as one snapshot.

# Modes

	stride -mode=once    run the pipeline a single time and exit
	stride -mode=serve   schedule runs and serve the read API (default)

In once mode the exit status is non-zero when the run fails. In serve mode a
failed run is logged and the previous snapshot keeps being served.

# Supervision

Serve mode runs under a Suture v4 tree:

	RootSupervisor ("stride")
	├── PipelineSupervisor ("pipeline-layer")
	│   └── Pipeline runner (interval schedule)
	└── APISupervisor ("api-layer")
	    └── HTTP server (read API and /metrics)

SIGINT and SIGTERM cancel the root context; in-flight runs are canceled and
the HTTP server drains for up to the shutdown timeout.

# Configuration

Defaults, then an optional YAML file (CONFIG_PATH, ./config.yaml,
/etc/stride/config.yaml), then environment variables:

	SNAPSHOT_HORIZON=2024-06-30   as-of date, empty for today (UTC)
	PIPELINE_INTERVAL=1h          0 disables the schedule
	DUCKDB_PATH=/data/stride.duckdb
	HTTP_PORT=8380
	LOG_LEVEL=debug

# Port 8380

The default port is 8380.
*/
package main
