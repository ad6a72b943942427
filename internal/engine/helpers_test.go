// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// day parses a YYYY-MM-DD date in UTC.
func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

// month parses a YYYY-MM month start in UTC.
func month(s string) time.Time {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sub(userID string, plan models.Plan, start string, end string, price float64) models.Subscription {
	s := models.Subscription{UserID: userID, Plan: plan, StartDate: day(start), Price: price}
	if end != "" {
		s.EndDate = dayPtr(end)
	}
	return s
}

func event(userID, date string) models.ActivityEvent {
	return models.ActivityEvent{UserID: userID, EventDate: day(date), EventTime: "07:30:00", Category: "strength"}
}

func interval(userID string, plan models.Plan, start, end string) models.MembershipInterval {
	m := models.MembershipInterval{UserID: userID, Plan: plan, StartDate: day(start), RecordCount: 1}
	if end != "" {
		m.EndDate = dayPtr(end)
	}
	return m
}

func calendarOf(first, last string) []models.CalendarMonth {
	var months []models.CalendarMonth
	for m := month(first); !m.After(month(last)); m = AddMonths(m, 1) {
		months = append(months, models.CalendarMonth{
			MonthStart: m, Year: m.Year(), Month: int(m.Month()), MonthName: m.Month().String(),
		})
	}
	return months
}

func floatPtr(v float64) *float64 {
	return &v
}
