// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"context"
	"fmt"
)

// Table names.
const (
	TableUsers          = "users"
	TableSubscriptions  = "subscriptions"
	TableActivityEvents = "activity_events"

	TableCalendarMonths         = "calendar_months"
	TableMembershipIntervals    = "membership_intervals"
	TableCohortAssignments      = "cohort_assignments"
	TableMonthlyMembershipFacts = "monthly_membership_facts"
	TableMonthlyActivityFacts   = "monthly_activity_facts"
	TableCohortRetention        = "cohort_retention"
	TableCohortChurn            = "cohort_churn"
	TableCohortEngagement       = "cohort_engagement"
	TableCohortLTV              = "cohort_ltv"
	TableCohortPeriodSummary    = "cohort_period_summary"
	TableRetentionCurve         = "retention_curve"
	TableSnapshotMetadata       = "snapshot_metadata"

	TablePipelineRuns = "pipeline_runs"
)

// factTables are replaced as a unit on every publish.
var factTables = []string{
	TableCalendarMonths,
	TableMembershipIntervals,
	TableCohortAssignments,
	TableMonthlyMembershipFacts,
	TableMonthlyActivityFacts,
	TableCohortRetention,
	TableCohortChurn,
	TableCohortEngagement,
	TableCohortLTV,
	TableCohortPeriodSummary,
	TableRetentionCurve,
	TableSnapshotMetadata,
}

var schemaStatements = []string{
	// Inputs
	`CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR PRIMARY KEY,
		branch_id VARCHAR NOT NULL,
		gender VARCHAR,
		age INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE,
		price DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_events (
		user_id VARCHAR NOT NULL,
		event_date DATE NOT NULL,
		event_time VARCHAR,
		category VARCHAR
	)`,

	// Dimensions
	`CREATE TABLE IF NOT EXISTS calendar_months (
		month_start DATE PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		month_name VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS membership_intervals (
		user_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE,
		total_value DOUBLE NOT NULL,
		record_count INTEGER NOT NULL,
		PRIMARY KEY (user_id, plan)
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_assignments (
		user_id VARCHAR PRIMARY KEY,
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL
	)`,

	// Monthly facts
	`CREATE TABLE IF NOT EXISTS monthly_membership_facts (
		month_start DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		opening_active INTEGER NOT NULL,
		lost INTEGER NOT NULL,
		active_during_month INTEGER NOT NULL,
		churn_pct DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_activity_facts (
		month_start DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR,
		mau INTEGER NOT NULL,
		total_events INTEGER NOT NULL,
		active_memberships INTEGER NOT NULL,
		avg_events_per_mau DOUBLE
	)`,

	// Cohort facts
	`CREATE TABLE IF NOT EXISTS cohort_retention (
		user_id VARCHAR NOT NULL,
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		activity_month DATE NOT NULL,
		cohort_period INTEGER NOT NULL,
		events INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_churn (
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		cohort_period INTEGER NOT NULL,
		churned_users INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		churn_pct DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_engagement (
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		cohort_period INTEGER NOT NULL,
		total_workouts INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		initial_users INTEGER NOT NULL,
		workouts_per_active_user DOUBLE,
		workouts_per_initial_user DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_ltv (
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		cohort_period INTEGER NOT NULL,
		revenue DOUBLE NOT NULL,
		paying_users INTEGER NOT NULL,
		cumulative_revenue DOUBLE NOT NULL,
		avg_revenue_per_user DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_period_summary (
		cohort_month DATE NOT NULL,
		branch_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		cohort_period INTEGER NOT NULL,
		retained_users INTEGER NOT NULL,
		total_events INTEGER NOT NULL,
		revenue DOUBLE NOT NULL,
		cumulative_revenue DOUBLE NOT NULL,
		avg_revenue_per_retained_user DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS retention_curve (
		cohort_period INTEGER PRIMARY KEY,
		average_retention DOUBLE NOT NULL,
		median_retention DOUBLE NOT NULL,
		min_retention DOUBLE NOT NULL,
		max_retention DOUBLE NOT NULL,
		cohorts_with_data INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_metadata (
		run_id VARCHAR NOT NULL,
		generation BIGINT NOT NULL,
		snapshot_horizon DATE NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		compute_time_ms BIGINT NOT NULL,
		stats VARCHAR
	)`,

	// Run log
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id VARCHAR PRIMARY KEY,
		correlation_id VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status VARCHAR NOT NULL,
		error VARCHAR,
		users INTEGER NOT NULL DEFAULT 0,
		subscriptions INTEGER NOT NULL DEFAULT 0,
		events INTEGER NOT NULL DEFAULT 0,
		fact_rows INTEGER NOT NULL DEFAULT 0,
		generation BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON pipeline_runs(started_at)`,
}

// createSchema creates every table idempotently.
func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
