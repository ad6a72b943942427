// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// membershipIndex maps user_id to the user's intervals in start order.
type membershipIndex map[string][]models.MembershipInterval

func indexMemberships(intervals []models.MembershipInterval) membershipIndex {
	idx := make(membershipIndex)
	for _, m := range intervals {
		idx[m.UserID] = append(idx[m.UserID], m)
	}
	for _, list := range idx {
		sortByStart(list)
	}
	return idx
}

func sortByStart(list []models.MembershipInterval) {
	// insertion sort, per-user lists are tiny
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && startsBefore(list[j], list[j-1]); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

func startsBefore(a, b models.MembershipInterval) bool {
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}
	return a.Plan.Rank() < b.Plan.Rank()
}

// planAt returns the plan whose interval contains day, or PlanNone. Valid
// input holds at most one plan at a time; overlaps resolve to the earliest
// starting interval.
func (idx membershipIndex) planAt(userID string, day time.Time) models.Plan {
	for _, m := range idx[userID] {
		if m.Contains(day) {
			return m.Plan
		}
	}
	return models.PlanNone
}

// ActivityFactsResult carries monthly activity facts and the count of events
// the calendar does not cover.
type ActivityFactsResult struct {
	Facts                 []models.MonthlyActivityFact
	EventsOutsideCalendar int
}

type activityBucket struct {
	events int
	users  map[string]struct{}
}

// BuildActivityFacts computes monthly active users, workout totals and
// averages per month, branch and plan. An event is attributed to the plan
// whose interval contains the event date; events with no such interval fall
// into the PlanNone bucket and count toward totals but never toward MAU.
// membershipFacts supplies the active-during-month alignment column.
func BuildActivityFacts(
	calendar []models.CalendarMonth,
	intervals []models.MembershipInterval,
	users []models.User,
	events []models.ActivityEvent,
	membershipFacts []models.MonthlyMembershipFact,
) (*ActivityFactsResult, error) {
	uidx := indexUsers(users)
	midx := indexMemberships(intervals)

	inCalendar := make(map[time.Time]bool, len(calendar))
	for _, cm := range calendar {
		inCalendar[cm.MonthStart] = true
	}

	result := &ActivityFactsResult{}
	buckets := make(map[monthKey]*activityBucket)
	combos := make(map[branchPlan]struct{})

	for _, mf := range membershipFacts {
		combos[branchPlan{branch: mf.BranchID, plan: mf.Plan}] = struct{}{}
	}

	for _, ev := range events {
		u, ok := uidx[ev.UserID]
		if !ok {
			return nil, &IntegrityError{Rule: RuleEventUser, Record: "user_id=" + ev.UserID}
		}

		day := DateTrunc(ev.EventDate)
		month := MonthTrunc(day)
		if !inCalendar[month] {
			result.EventsOutsideCalendar++
			continue
		}

		bp := branchPlan{branch: u.BranchID, plan: midx.planAt(ev.UserID, day)}
		combos[bp] = struct{}{}

		k := monthKey{month: month, branchPlan: bp}
		b, ok := buckets[k]
		if !ok {
			b = &activityBucket{users: make(map[string]struct{})}
			buckets[k] = b
		}
		b.events++
		if bp.plan != models.PlanNone {
			b.users[ev.UserID] = struct{}{}
		}
	}

	during := make(map[monthKey]int, len(membershipFacts))
	for _, mf := range membershipFacts {
		during[monthKey{month: mf.MonthStart, branchPlan: branchPlan{branch: mf.BranchID, plan: mf.Plan}}] = mf.ActiveDuringMonth
	}

	keys := sortedBranchPlans(combos)
	result.Facts = make([]models.MonthlyActivityFact, 0, len(calendar)*len(keys))
	for _, cm := range calendar {
		for _, bp := range keys {
			k := monthKey{month: cm.MonthStart, branchPlan: bp}
			var total, mau int
			if b, ok := buckets[k]; ok {
				total = b.events
				mau = len(b.users)
			}
			result.Facts = append(result.Facts, models.MonthlyActivityFact{
				MonthStart:        cm.MonthStart,
				BranchID:          bp.branch,
				Plan:              bp.plan,
				MAU:               mau,
				TotalEvents:       total,
				ActiveMemberships: during[k],
				AvgEventsPerMAU:   ratio(float64(total), float64(mau), 1),
			})
		}
	}

	return result, nil
}
