// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"math"
	"time"
)

// MonthTrunc returns the first day of t's month at UTC midnight.
func MonthTrunc(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DateTrunc drops the time of day, keeping the calendar date.
func DateTrunc(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CohortPeriod is the whole-month offset of ref from cohort:
// year_diff*12 + month_diff. Days are ignored.
func CohortPeriod(ref, cohort time.Time) int {
	return (ref.Year()-cohort.Year())*12 + int(ref.Month()) - int(cohort.Month())
}

// AddMonths moves a month start forward by n months.
func AddMonths(monthStart time.Time, n int) time.Time {
	return time.Date(monthStart.Year(), monthStart.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ratio returns round(num/den*scale, 2), or nil when den is zero.
func ratio(num, den, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	v := round2(num / den * scale)
	return &v
}

// percentage returns round(num/den*100, 2), or nil when den is zero.
func percentage(num, den int) *float64 {
	return ratio(float64(num), float64(den), 100)
}
