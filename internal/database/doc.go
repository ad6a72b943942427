// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package database is the DuckDB store behind the pipeline.

It plays three roles:

  - Source: users, subscriptions and activity_events tables written by the
    ingestion side (InsertUsers, InsertSubscriptions, InsertActivityEvents)
    and read back by LoadInputs.
  - Publisher: PublishSnapshot replaces every fact table in one transaction,
    so readers of the database see either the previous snapshot or the new
    one in full.
  - Run log: pipeline_runs records each run's status, error and counts.

Connections are opened through database/sql with the duckdb-go driver. Use
Path ":memory:" for tests.
*/
package database
