// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import "time"

// MonthlyMembershipFact holds point-in-time membership counts for one
// month, branch and plan.
type MonthlyMembershipFact struct {
	MonthStart time.Time `json:"month_start"`
	BranchID   string    `json:"branch_id"`
	Plan       Plan      `json:"plan"`

	// OpeningActive counts users active strictly before the month began
	OpeningActive int `json:"opening_active"`

	// Lost counts users whose membership ended within the month
	Lost int `json:"lost"`

	// ActiveDuringMonth counts users whose membership started on or before
	// the month start and had not ended by it
	ActiveDuringMonth int `json:"active_during_month"`

	// ChurnPct is round(Lost / OpeningActive * 100, 2); nil when
	// OpeningActive is zero
	ChurnPct *float64 `json:"churn_pct"`
}

// MonthlyActivityFact holds activity counts for one month, branch and plan.
// Plan is PlanNone for events with no overlapping membership.
type MonthlyActivityFact struct {
	MonthStart time.Time `json:"month_start"`
	BranchID   string    `json:"branch_id"`
	Plan       Plan      `json:"plan"`

	// MAU is the count of distinct users with a qualifying event
	MAU int `json:"mau"`

	// TotalEvents counts every event in the bucket
	TotalEvents int `json:"total_events"`

	// ActiveMemberships mirrors MonthlyMembershipFact.ActiveDuringMonth
	ActiveMemberships int `json:"active_memberships"`

	// AvgEventsPerMAU is round(TotalEvents / MAU, 2); nil when MAU is zero
	AvgEventsPerMAU *float64 `json:"avg_events_per_mau"`
}

// RetentionRecord is the finest-grain retention fact: one user active in one
// month, expressed relative to the user's cohort.
type RetentionRecord struct {
	UserID        string    `json:"user_id"`
	CohortMonth   time.Time `json:"cohort_month"`
	BranchID      string    `json:"branch_id"`
	Plan          Plan      `json:"plan"`
	ActivityMonth time.Time `json:"activity_month"`
	CohortPeriod  int       `json:"cohort_period"`
	Events        int       `json:"events"`
}

// CohortChurnFact is the churn of one cohort partition at one period.
type CohortChurnFact struct {
	CohortMonth  time.Time `json:"cohort_month"`
	BranchID     string    `json:"branch_id"`
	Plan         Plan      `json:"plan"`
	CohortPeriod int       `json:"cohort_period"`

	ChurnedUsers int     `json:"churned_users"`
	ActiveUsers  int     `json:"active_users"`
	ChurnPct     float64 `json:"churn_pct"`
}

// CohortEngagementFact is workout engagement of one cohort partition at one
// period.
type CohortEngagementFact struct {
	CohortMonth  time.Time `json:"cohort_month"`
	BranchID     string    `json:"branch_id"`
	Plan         Plan      `json:"plan"`
	CohortPeriod int       `json:"cohort_period"`

	TotalWorkouts int `json:"total_workouts"`
	ActiveUsers   int `json:"active_users"`
	InitialUsers  int `json:"initial_users"`

	// WorkoutsPerActiveUser is nil when ActiveUsers is zero
	WorkoutsPerActiveUser *float64 `json:"workouts_per_active_user"`

	// WorkoutsPerInitialUser is nil when InitialUsers is zero
	WorkoutsPerInitialUser *float64 `json:"workouts_per_initial_user"`
}

// CohortLTVFact is revenue of one cohort partition at one period with the
// running cumulative total over ascending periods.
type CohortLTVFact struct {
	CohortMonth  time.Time `json:"cohort_month"`
	BranchID     string    `json:"branch_id"`
	Plan         Plan      `json:"plan"`
	CohortPeriod int       `json:"cohort_period"`

	Revenue           float64  `json:"revenue"`
	PayingUsers       int      `json:"paying_users"`
	CumulativeRevenue float64  `json:"cumulative_revenue"`
	AvgRevenuePerUser *float64 `json:"avg_revenue_per_user"`
}

// CohortPeriodSummary joins engagement and revenue for every period of a
// cohort partition. CumulativeRevenue carries forward through periods with
// no payments.
type CohortPeriodSummary struct {
	CohortMonth  time.Time `json:"cohort_month"`
	BranchID     string    `json:"branch_id"`
	Plan         Plan      `json:"plan"`
	CohortPeriod int       `json:"cohort_period"`

	RetainedUsers     int     `json:"retained_users"`
	TotalEvents       int     `json:"total_events"`
	Revenue           float64 `json:"revenue"`
	CumulativeRevenue float64 `json:"cumulative_revenue"`

	// AvgRevenuePerRetainedUser is nil when RetainedUsers is zero
	AvgRevenuePerRetainedUser *float64 `json:"avg_revenue_per_retained_user"`
}

// RetentionPoint aggregates retention rates of every cohort partition at one
// period offset.
type RetentionPoint struct {
	CohortPeriod     int     `json:"cohort_period"`
	AverageRetention float64 `json:"average_retention"`
	MedianRetention  float64 `json:"median_retention"`
	MinRetention     float64 `json:"min_retention"`
	MaxRetention     float64 `json:"max_retention"`
	CohortsWithData  int     `json:"cohorts_with_data"`
}
