// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stride/internal/logging"
	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// PublishSnapshot replaces every fact table with the contents of snap in one
// transaction. On failure the previously published tables are untouched.
func (db *DB) PublishSnapshot(ctx context.Context, snap *models.Snapshot) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	stats, err := json.Marshal(snap.Metadata.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range factTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				metrics.RecordDBQuery("DELETE", table, time.Since(start), err)
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		for _, write := range snapshotWriters(snap, string(stats)) {
			if err := write(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errorContext("publish snapshot", err)
	}

	logging.Ctx(ctx).Debug().
		Int64("generation", snap.Metadata.Generation).
		Dur("duration", time.Since(start)).
		Msg("Snapshot written to DuckDB")
	return nil
}

type txWriter func(ctx context.Context, tx *sql.Tx) error

func snapshotWriters(snap *models.Snapshot, stats string) []txWriter {
	return []txWriter{
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCalendarMonths,
				[]string{"month_start", "year", "month", "month_name"},
				len(snap.Calendar), func(i int) []any {
					c := snap.Calendar[i]
					return []any{c.MonthStart, c.Year, c.Month, c.MonthName}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableMembershipIntervals,
				[]string{"user_id", "plan", "start_date", "end_date", "total_value", "record_count"},
				len(snap.Memberships), func(i int) []any {
					m := snap.Memberships[i]
					return []any{m.UserID, string(m.Plan), m.StartDate, nullTime(m.EndDate), m.TotalValue, m.RecordCount}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortAssignments,
				[]string{"user_id", "cohort_month", "branch_id", "plan"},
				len(snap.Cohorts), func(i int) []any {
					c := snap.Cohorts[i]
					return []any{c.UserID, c.CohortMonth, c.BranchID, string(c.Plan)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableMonthlyMembershipFacts,
				[]string{"month_start", "branch_id", "plan", "opening_active", "lost", "active_during_month", "churn_pct"},
				len(snap.MembershipFacts), func(i int) []any {
					f := snap.MembershipFacts[i]
					return []any{f.MonthStart, f.BranchID, string(f.Plan), f.OpeningActive, f.Lost, f.ActiveDuringMonth, nullFloat(f.ChurnPct)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableMonthlyActivityFacts,
				[]string{"month_start", "branch_id", "plan", "mau", "total_events", "active_memberships", "avg_events_per_mau"},
				len(snap.ActivityFacts), func(i int) []any {
					f := snap.ActivityFacts[i]
					return []any{f.MonthStart, f.BranchID, nullString(string(f.Plan)), f.MAU, f.TotalEvents, f.ActiveMemberships, nullFloat(f.AvgEventsPerMAU)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortRetention,
				[]string{"user_id", "cohort_month", "branch_id", "plan", "activity_month", "cohort_period", "events"},
				len(snap.Retention), func(i int) []any {
					r := snap.Retention[i]
					return []any{r.UserID, r.CohortMonth, r.BranchID, string(r.Plan), r.ActivityMonth, r.CohortPeriod, r.Events}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortChurn,
				[]string{"cohort_month", "branch_id", "plan", "cohort_period", "churned_users", "active_users", "churn_pct"},
				len(snap.Churn), func(i int) []any {
					f := snap.Churn[i]
					return []any{f.CohortMonth, f.BranchID, string(f.Plan), f.CohortPeriod, f.ChurnedUsers, f.ActiveUsers, f.ChurnPct}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortEngagement,
				[]string{"cohort_month", "branch_id", "plan", "cohort_period", "total_workouts", "active_users", "initial_users", "workouts_per_active_user", "workouts_per_initial_user"},
				len(snap.Engagement), func(i int) []any {
					f := snap.Engagement[i]
					return []any{f.CohortMonth, f.BranchID, string(f.Plan), f.CohortPeriod, f.TotalWorkouts, f.ActiveUsers, f.InitialUsers,
						nullFloat(f.WorkoutsPerActiveUser), nullFloat(f.WorkoutsPerInitialUser)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortLTV,
				[]string{"cohort_month", "branch_id", "plan", "cohort_period", "revenue", "paying_users", "cumulative_revenue", "avg_revenue_per_user"},
				len(snap.LTV), func(i int) []any {
					f := snap.LTV[i]
					return []any{f.CohortMonth, f.BranchID, string(f.Plan), f.CohortPeriod, f.Revenue, f.PayingUsers, f.CumulativeRevenue, nullFloat(f.AvgRevenuePerUser)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableCohortPeriodSummary,
				[]string{"cohort_month", "branch_id", "plan", "cohort_period", "retained_users", "total_events", "revenue", "cumulative_revenue", "avg_revenue_per_retained_user"},
				len(snap.CohortSummary), func(i int) []any {
					f := snap.CohortSummary[i]
					return []any{f.CohortMonth, f.BranchID, string(f.Plan), f.CohortPeriod, f.RetainedUsers, f.TotalEvents, f.Revenue, f.CumulativeRevenue,
						nullFloat(f.AvgRevenuePerRetainedUser)}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			return insertRows(ctx, tx, TableRetentionCurve,
				[]string{"cohort_period", "average_retention", "median_retention", "min_retention", "max_retention", "cohorts_with_data"},
				len(snap.RetentionCurve), func(i int) []any {
					p := snap.RetentionCurve[i]
					return []any{p.CohortPeriod, p.AverageRetention, p.MedianRetention, p.MinRetention, p.MaxRetention, p.CohortsWithData}
				})
		},
		func(ctx context.Context, tx *sql.Tx) error {
			m := snap.Metadata
			return insertRows(ctx, tx, TableSnapshotMetadata,
				[]string{"run_id", "generation", "snapshot_horizon", "generated_at", "compute_time_ms", "stats"},
				1, func(int) []any {
					return []any{m.RunID, m.Generation, m.SnapshotHorizon, m.GeneratedAt, m.ComputeTimeMs, stats}
				})
		},
	}
}

// CountRows returns the row count of a published table.
func (db *DB) CountRows(ctx context.Context, table string) (int, error) {
	known := false
	for _, t := range factTables {
		if t == table {
			known = true
			break
		}
	}
	if !known {
		return 0, fmt.Errorf("unknown fact table %q", table)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
