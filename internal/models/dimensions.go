// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import "time"

// CalendarMonth is one month bucket of the derived calendar dimension.
type CalendarMonth struct {
	// MonthStart is the first day of the month (UTC midnight)
	MonthStart time.Time `json:"month_start"`

	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
}

// MembershipInterval is the consolidated span of one user's subscription to
// one plan across every raw record for that pair.
type MembershipInterval struct {
	UserID    string     `json:"user_id"`
	Plan      Plan       `json:"plan"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"` // nil while still active

	// TotalValue is the sum of prices of every record in the interval
	TotalValue float64 `json:"total_value"`

	// RecordCount is the number of raw records collapsed into the interval
	RecordCount int `json:"record_count"`
}

// IsOpen reports whether the interval has no end date.
func (m MembershipInterval) IsOpen() bool {
	return m.EndDate == nil
}

// Contains reports whether day lies within [StartDate, EndDate].
func (m MembershipInterval) Contains(day time.Time) bool {
	if day.Before(m.StartDate) {
		return false
	}
	return m.EndDate == nil || !day.After(*m.EndDate)
}

// CohortAssignment maps a user to the month their earliest membership began.
type CohortAssignment struct {
	UserID      string    `json:"user_id"`
	CohortMonth time.Time `json:"cohort_month"`
	BranchID    string    `json:"branch_id"`
	Plan        Plan      `json:"plan"`
}
