// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// cohortIndex maps user_id to the user's cohort assignment.
type cohortIndex map[string]models.CohortAssignment

func indexCohorts(cohorts []models.CohortAssignment) cohortIndex {
	idx := make(cohortIndex, len(cohorts))
	for _, c := range cohorts {
		idx[c.UserID] = c
	}
	return idx
}

// lastMonth returns the final calendar month start.
func lastMonth(calendar []models.CalendarMonth) time.Time {
	if len(calendar) == 0 {
		return time.Time{}
	}
	return calendar[len(calendar)-1].MonthStart
}

// RetentionResult carries per-user retention records and the rows that could
// not be placed on a cohort.
type RetentionResult struct {
	Records []models.RetentionRecord

	// UsersWithoutCohort counts distinct users with activity but no membership
	UsersWithoutCohort int

	// NegativePeriods counts user-months before the user's cohort month
	NegativePeriods int
}

type userMonth struct {
	userID string
	month  time.Time
}

// BuildRetention aggregates events to user-month granularity and expresses
// each active month as a period offset from the user's cohort. Events in
// months outside the calendar are not counted.
func BuildRetention(calendar []models.CalendarMonth, cohorts []models.CohortAssignment, users []models.User, events []models.ActivityEvent) (*RetentionResult, error) {
	uidx := indexUsers(users)
	cidx := indexCohorts(cohorts)

	inCalendar := make(map[time.Time]bool, len(calendar))
	for _, cm := range calendar {
		inCalendar[cm.MonthStart] = true
	}

	counts := make(map[userMonth]int)
	for _, ev := range events {
		if _, ok := uidx[ev.UserID]; !ok {
			return nil, &IntegrityError{Rule: RuleEventUser, Record: "user_id=" + ev.UserID}
		}
		month := MonthTrunc(ev.EventDate)
		if !inCalendar[month] {
			continue
		}
		counts[userMonth{userID: ev.UserID, month: month}]++
	}

	result := &RetentionResult{Records: make([]models.RetentionRecord, 0, len(counts))}
	orphans := make(map[string]struct{})
	for um, n := range counts {
		c, ok := cidx[um.userID]
		if !ok {
			orphans[um.userID] = struct{}{}
			continue
		}
		period := CohortPeriod(um.month, c.CohortMonth)
		if period < 0 {
			result.NegativePeriods++
			continue
		}
		result.Records = append(result.Records, models.RetentionRecord{
			UserID:        um.userID,
			CohortMonth:   c.CohortMonth,
			BranchID:      c.BranchID,
			Plan:          c.Plan,
			ActivityMonth: um.month,
			CohortPeriod:  period,
			Events:        n,
		})
	}
	result.UsersWithoutCohort = len(orphans)

	sort.Slice(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.ActivityMonth.Before(b.ActivityMonth)
	})
	return result, nil
}

// BuildChurn counts churned users per cohort partition and period (the period
// of the month their membership ended) and divides by the number of cohort
// users whose membership was active during that month. Only periods with
// churned users are reported.
func BuildChurn(calendar []models.CalendarMonth, intervals []models.MembershipInterval, cohorts []models.CohortAssignment) ([]models.CohortChurnFact, error) {
	cidx := indexCohorts(cohorts)
	midx := indexMemberships(intervals)

	churned := make(map[cohortPeriodKey]map[string]struct{})
	for _, m := range intervals {
		if m.EndDate == nil {
			continue
		}
		c, ok := cidx[m.UserID]
		if !ok {
			return nil, &IntegrityError{Rule: RuleMembershipUser, Record: "cohort for user_id=" + m.UserID}
		}
		period := CohortPeriod(MonthTrunc(*m.EndDate), c.CohortMonth)
		if period < 0 {
			return nil, &IntegrityError{
				Rule:   RuleNegativePeriod,
				Record: fmt.Sprintf("user_id=%s plan=%s end_date=%s", m.UserID, m.Plan, m.EndDate.Format("2006-01-02")),
			}
		}
		k := cohortPeriodKey{cohortKey: keyOf(c), period: period}
		if churned[k] == nil {
			churned[k] = make(map[string]struct{})
		}
		churned[k][m.UserID] = struct{}{}
	}

	active := activeCohortSize(calendar, midx, cohorts)

	facts := make([]models.CohortChurnFact, 0, len(churned))
	for k, set := range churned {
		denominator := active[k]
		if denominator == 0 {
			return nil, &IntegrityError{
				Rule:   RuleChurnDenominator,
				Record: fmt.Sprintf("cohort=%s branch=%s plan=%s period=%d", k.cohort.Format("2006-01"), k.branch, k.plan, k.period),
			}
		}
		facts = append(facts, models.CohortChurnFact{
			CohortMonth:  k.cohort,
			BranchID:     k.branch,
			Plan:         k.plan,
			CohortPeriod: k.period,
			ChurnedUsers: len(set),
			ActiveUsers:  denominator,
			ChurnPct:     round2(float64(len(set)) / float64(denominator) * 100),
		})
	}

	sort.Slice(facts, func(i, j int) bool {
		return churnKey(facts[i]).less(churnKey(facts[j]))
	})
	return facts, nil
}

func churnKey(f models.CohortChurnFact) cohortPeriodKey {
	return cohortPeriodKey{cohortKey: cohortKey{cohort: f.CohortMonth, branch: f.BranchID, plan: f.Plan}, period: f.CohortPeriod}
}

// activeCohortSize counts, for every cohort partition and period >= 0, the
// distinct cohort users with any membership active during that calendar month.
func activeCohortSize(calendar []models.CalendarMonth, midx membershipIndex, cohorts []models.CohortAssignment) map[cohortPeriodKey]int {
	active := make(map[cohortPeriodKey]int)
	for _, c := range cohorts {
		ck := keyOf(c)
		for _, cm := range calendar {
			period := CohortPeriod(cm.MonthStart, c.CohortMonth)
			if period < 0 {
				continue
			}
			for _, m := range midx[c.UserID] {
				if activeDuringMonth(m, cm.MonthStart) {
					active[cohortPeriodKey{cohortKey: ck, period: period}]++
					break
				}
			}
		}
	}
	return active
}

// BuildEngagement reports workouts and distinct active users for every period
// of every cohort partition, from period 0 through the final calendar month,
// with the partition's initial size and both engagement ratios.
func BuildEngagement(calendar []models.CalendarMonth, cohorts []models.CohortAssignment, retention []models.RetentionRecord) []models.CohortEngagementFact {
	initial := make(map[cohortKey]int)
	for _, c := range cohorts {
		initial[keyOf(c)]++
	}

	type periodAgg struct {
		workouts int
		users    map[string]struct{}
	}
	agg := make(map[cohortPeriodKey]*periodAgg)
	for _, r := range retention {
		k := cohortPeriodKey{cohortKey: cohortKey{cohort: r.CohortMonth, branch: r.BranchID, plan: r.Plan}, period: r.CohortPeriod}
		a, ok := agg[k]
		if !ok {
			a = &periodAgg{users: make(map[string]struct{})}
			agg[k] = a
		}
		a.workouts += r.Events
		a.users[r.UserID] = struct{}{}
	}

	partitions := sortedCohortKeys(initial)
	end := lastMonth(calendar)

	facts := make([]models.CohortEngagementFact, 0)
	for _, ck := range partitions {
		for period := 0; period <= CohortPeriod(end, ck.cohort); period++ {
			var workouts, activeUsers int
			if a, ok := agg[cohortPeriodKey{cohortKey: ck, period: period}]; ok {
				workouts = a.workouts
				activeUsers = len(a.users)
			}
			size := initial[ck]
			facts = append(facts, models.CohortEngagementFact{
				CohortMonth:            ck.cohort,
				BranchID:               ck.branch,
				Plan:                   ck.plan,
				CohortPeriod:           period,
				TotalWorkouts:          workouts,
				ActiveUsers:            activeUsers,
				InitialUsers:           size,
				WorkoutsPerActiveUser:  ratio(float64(workouts), float64(activeUsers), 1),
				WorkoutsPerInitialUser: ratio(float64(workouts), float64(size), 1),
			})
		}
	}
	return facts
}

func sortedCohortKeys[V any](m map[cohortKey]V) []cohortKey {
	keys := make([]cohortKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}
