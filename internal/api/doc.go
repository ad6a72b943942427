// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package api serves the published snapshot over a read-only HTTP API.

Every fact endpoint reads the snapshot held by snapshot.Store, so a single
response is always built from one pipeline run. Responses use the
models.APIResponse envelope and carry the snapshot generation in metadata.

Routes:

	GET /api/v1/health/live     process is up
	GET /api/v1/health/ready    a snapshot has been published (503 until then)
	GET /api/v1/snapshot        run id, horizon, generation and run stats
	GET /api/v1/facts/{set}     rows of one fact set
	GET /api/v1/runs            recent pipeline runs (when a run history is wired)
	GET /metrics                Prometheus metrics

Fact endpoints accept branch, plan and cohort (YYYY-MM) filters where the fact
set has that dimension, plus limit and offset. A filter on a set without that
dimension is rejected with 400 FILTER_NOT_SUPPORTED.

Example:

	curl 'http://localhost:8380/api/v1/facts/churn?branch=north&cohort=2023-01'
*/
package api
