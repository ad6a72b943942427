// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"sort"
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// StreamSubscriptions is the stream name used in subscription errors.
const StreamSubscriptions = "subscriptions"

type userPlanKey struct {
	userID string
	plan   models.Plan
}

// ConsolidateMemberships collapses raw subscription records into one
// interval per (user, plan). Records of the same pair are always treated as
// contiguous. The interval is open when any record is open, or when its
// latest end lies after the horizon.
func ConsolidateMemberships(records []models.Subscription, horizon time.Time) ([]models.MembershipInterval, error) {
	groups := make(map[userPlanKey]*models.MembershipInterval)
	open := make(map[userPlanKey]bool)

	for i, rec := range records {
		if rec.StartDate.IsZero() {
			return nil, &ValidationError{
				Stream: StreamSubscriptions, Index: i, RecordKey: rec.UserID,
				Field: "start_date", Rule: "required", Message: "start_date is required",
			}
		}
		if rec.Price < 0 {
			return nil, &ValidationError{
				Stream: StreamSubscriptions, Index: i, RecordKey: rec.UserID,
				Field: "price", Rule: "gte", Message: "price must be greater than or equal to 0",
			}
		}

		key := userPlanKey{userID: rec.UserID, plan: rec.Plan}
		start := DateTrunc(rec.StartDate)

		iv, exists := groups[key]
		if !exists {
			iv = &models.MembershipInterval{
				UserID:    rec.UserID,
				Plan:      rec.Plan,
				StartDate: start,
			}
			groups[key] = iv
		}

		if start.Before(iv.StartDate) {
			iv.StartDate = start
		}
		if rec.EndDate == nil {
			open[key] = true
		} else {
			end := DateTrunc(*rec.EndDate)
			if iv.EndDate == nil || end.After(*iv.EndDate) {
				iv.EndDate = &end
			}
		}
		iv.TotalValue += rec.Price
		iv.RecordCount++
	}

	horizon = DateTrunc(horizon)
	intervals := make([]models.MembershipInterval, 0, len(groups))
	for key, iv := range groups {
		if open[key] || (iv.EndDate != nil && iv.EndDate.After(horizon)) {
			iv.EndDate = nil
		}
		intervals = append(intervals, *iv)
	}

	sortIntervals(intervals)
	return intervals, nil
}

// sortIntervals orders intervals by user, then plan rank.
func sortIntervals(intervals []models.MembershipInterval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].UserID != intervals[j].UserID {
			return intervals[i].UserID < intervals[j].UserID
		}
		return intervals[i].Plan.Rank() < intervals[j].Plan.Rank()
	})
}
