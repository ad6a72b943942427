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

// branchPlan is the (branch, plan) grouping dimension of monthly facts.
type branchPlan struct {
	branch string
	plan   models.Plan
}

func (k branchPlan) less(o branchPlan) bool {
	if k.branch != o.branch {
		return k.branch < o.branch
	}
	return k.plan.Rank() < o.plan.Rank()
}

// monthKey identifies one monthly fact row.
type monthKey struct {
	month time.Time
	branchPlan
}

// openingActive: started strictly before the month and not ended by its start.
func openingActive(m models.MembershipInterval, monthStart time.Time) bool {
	return m.StartDate.Before(monthStart) && (m.EndDate == nil || !m.EndDate.Before(monthStart))
}

// activeDuringMonth: started in or before the month and not ended by its
// start. Unlike openingActive the start comparison is on the truncated month,
// so a membership starting mid-month counts.
func activeDuringMonth(m models.MembershipInterval, monthStart time.Time) bool {
	return !MonthTrunc(m.StartDate).After(monthStart) && (m.EndDate == nil || !m.EndDate.Before(monthStart))
}

// lostInMonth: the membership ended within the month.
func lostInMonth(m models.MembershipInterval, monthStart time.Time) bool {
	return m.EndDate != nil && MonthTrunc(*m.EndDate).Equal(monthStart)
}

// groupByBranchPlan partitions intervals by the member's branch and plan.
func groupByBranchPlan(intervals []models.MembershipInterval, idx userIndex) (map[branchPlan][]models.MembershipInterval, error) {
	groups := make(map[branchPlan][]models.MembershipInterval)
	for _, m := range intervals {
		branch, err := idx.branchOf(m.UserID)
		if err != nil {
			return nil, err
		}
		k := branchPlan{branch: branch, plan: m.Plan}
		groups[k] = append(groups[k], m)
	}
	return groups, nil
}

func sortedBranchPlans[V any](groups map[branchPlan]V) []branchPlan {
	keys := make([]branchPlan, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// BuildMembershipFacts computes opening-active, lost and active-during-month
// counts for every calendar month and every (branch, plan) present in the
// membership data. Months with no members still produce a zero row.
func BuildMembershipFacts(calendar []models.CalendarMonth, intervals []models.MembershipInterval, users []models.User) ([]models.MonthlyMembershipFact, error) {
	groups, err := groupByBranchPlan(intervals, indexUsers(users))
	if err != nil {
		return nil, err
	}
	keys := sortedBranchPlans(groups)

	facts := make([]models.MonthlyMembershipFact, 0, len(calendar)*len(keys))
	for _, cm := range calendar {
		for _, k := range keys {
			// one interval per (user, plan), so interval counts are distinct user counts
			var opening, lost, during int
			for _, m := range groups[k] {
				if openingActive(m, cm.MonthStart) {
					opening++
				}
				if lostInMonth(m, cm.MonthStart) {
					lost++
				}
				if activeDuringMonth(m, cm.MonthStart) {
					during++
				}
			}
			facts = append(facts, models.MonthlyMembershipFact{
				MonthStart:        cm.MonthStart,
				BranchID:          k.branch,
				Plan:              k.plan,
				OpeningActive:     opening,
				Lost:              lost,
				ActiveDuringMonth: during,
				ChurnPct:          percentage(lost, opening),
			})
		}
	}
	return facts, nil
}
