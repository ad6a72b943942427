// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import "time"

// Snapshot is the complete output of one pipeline run. A snapshot is built
// once and never modified after publication.
type Snapshot struct {
	Metadata SnapshotMetadata `json:"metadata"`

	Calendar    []CalendarMonth      `json:"calendar"`
	Memberships []MembershipInterval `json:"memberships"`
	Cohorts     []CohortAssignment   `json:"cohorts"`

	MembershipFacts []MonthlyMembershipFact `json:"membership_facts"`
	ActivityFacts   []MonthlyActivityFact   `json:"activity_facts"`
	Retention       []RetentionRecord       `json:"retention"`
	Churn           []CohortChurnFact       `json:"churn"`
	Engagement      []CohortEngagementFact  `json:"engagement"`
	LTV             []CohortLTVFact         `json:"ltv"`

	CohortSummary  []CohortPeriodSummary `json:"cohort_summary"`
	RetentionCurve []RetentionPoint      `json:"retention_curve"`
}

// SnapshotMetadata records the provenance of a snapshot.
type SnapshotMetadata struct {
	RunID           string    `json:"run_id"`
	Generation      int64     `json:"generation"`
	SnapshotHorizon time.Time `json:"snapshot_horizon"`
	GeneratedAt     time.Time `json:"generated_at"`
	ComputeTimeMs   int64     `json:"compute_time_ms"`
	Stats           RunStats  `json:"stats"`
}

// RunStats counts inputs, exclusions and outputs of a run.
type RunStats struct {
	Users         int `json:"users"`
	Subscriptions int `json:"subscriptions"`
	Events        int `json:"events"`

	// EventsOutsideCalendar counts events in months the calendar does not cover
	EventsOutsideCalendar int `json:"events_outside_calendar"`

	// UsersWithoutCohort counts users with activity but no membership
	UsersWithoutCohort int `json:"users_without_cohort"`

	// NegativePeriodsExcluded counts activity or payment months before the
	// user's cohort month
	NegativePeriodsExcluded int `json:"negative_periods_excluded"`

	// Rows maps fact set name to row count
	Rows map[string]int `json:"rows"`
}

// Fact set names used for row counts, storage tables and the read API.
const (
	FactSetCalendar        = "calendar"
	FactSetMemberships     = "memberships"
	FactSetCohorts         = "cohorts"
	FactSetMembershipMonth = "membership-monthly"
	FactSetActivityMonth   = "activity-monthly"
	FactSetRetention       = "retention"
	FactSetChurn           = "churn"
	FactSetEngagement      = "engagement"
	FactSetLTV             = "ltv"
	FactSetCohortSummary   = "cohort-summary"
	FactSetRetentionCurve  = "retention-curve"
)

// RowCounts returns the number of rows in each fact set.
func (s *Snapshot) RowCounts() map[string]int {
	return map[string]int{
		FactSetCalendar:        len(s.Calendar),
		FactSetMemberships:     len(s.Memberships),
		FactSetCohorts:         len(s.Cohorts),
		FactSetMembershipMonth: len(s.MembershipFacts),
		FactSetActivityMonth:   len(s.ActivityFacts),
		FactSetRetention:       len(s.Retention),
		FactSetChurn:           len(s.Churn),
		FactSetEngagement:      len(s.Engagement),
		FactSetLTV:             len(s.LTV),
		FactSetCohortSummary:   len(s.CohortSummary),
		FactSetRetentionCurve:  len(s.RetentionCurve),
	}
}
