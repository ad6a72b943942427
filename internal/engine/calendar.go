// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// BuildCalendar returns one month bucket per month from the earliest
// membership start through the latest membership end, inclusive. Open
// intervals end at the snapshot horizon.
func BuildCalendar(intervals []models.MembershipInterval, horizon time.Time) ([]models.CalendarMonth, error) {
	if len(intervals) == 0 {
		return nil, &EmptyInputError{Reason: "no membership intervals to bound the calendar"}
	}

	minStart := intervals[0].StartDate
	var maxEnd time.Time
	for i, m := range intervals {
		if m.StartDate.Before(minStart) {
			minStart = m.StartDate
		}
		end := horizon
		if m.EndDate != nil {
			end = *m.EndDate
		}
		if i == 0 || end.After(maxEnd) {
			maxEnd = end
		}
	}

	first := MonthTrunc(minStart)
	last := MonthTrunc(maxEnd)
	if last.Before(first) {
		// every interval is open and starts after the horizon
		last = first
	}

	months := make([]models.CalendarMonth, 0, CohortPeriod(last, first)+1)
	for current := first; !current.After(last); current = AddMonths(current, 1) {
		months = append(months, models.CalendarMonth{
			MonthStart: current,
			Year:       current.Year(),
			Month:      int(current.Month()),
			MonthName:  current.Month().String(),
		})
	}

	return months, nil
}
