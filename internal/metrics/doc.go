// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package metrics provides Prometheus metrics for the pipeline, the DuckDB
store and the read API.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8380/metrics

# Available Metrics

Pipeline Metrics:
  - stride_pipeline_run_duration_seconds: Full run latency (histogram)
    Labels: status
  - stride_pipeline_runs_total: Runs by outcome (counter)
    Labels: status, error_kind
  - stride_pipeline_stage_duration_seconds: Engine stage latency (histogram)
    Labels: stage
  - stride_pipeline_last_success_timestamp: Unix time of last success (gauge)
  - stride_fact_set_rows: Rows per fact set in the published snapshot (gauge)
    Labels: set
  - stride_snapshot_generation: Published snapshot generation (gauge)

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type

API Metrics:
  - api_requests_total: Requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)

# Usage

	start := time.Now()
	err := runner.Run(ctx)
	metrics.RecordPipelineRun(time.Since(start), err, kind)

All collectors are registered with the default registry through promauto.
*/
package metrics
