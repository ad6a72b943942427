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

// userIndex maps user_id to the user record.
type userIndex map[string]models.User

func indexUsers(users []models.User) userIndex {
	idx := make(userIndex, len(users))
	for _, u := range users {
		idx[u.UserID] = u
	}
	return idx
}

// branchOf returns the branch of a user referenced by a membership.
func (idx userIndex) branchOf(userID string) (string, error) {
	u, ok := idx[userID]
	if !ok {
		return "", &IntegrityError{Rule: RuleMembershipUser, Record: "user_id=" + userID}
	}
	return u.BranchID, nil
}

// AssignCohorts assigns each user with at least one membership to the month
// their earliest interval began. When two plans share the earliest start,
// the lower-ranked plan wins (Basic, then Standard, then Pro).
func AssignCohorts(intervals []models.MembershipInterval, users []models.User) ([]models.CohortAssignment, error) {
	idx := indexUsers(users)

	earliest := make(map[string]models.MembershipInterval)
	for _, m := range intervals {
		cur, ok := earliest[m.UserID]
		if !ok || m.StartDate.Before(cur.StartDate) ||
			(m.StartDate.Equal(cur.StartDate) && m.Plan.Rank() < cur.Plan.Rank()) {
			earliest[m.UserID] = m
		}
	}

	assignments := make([]models.CohortAssignment, 0, len(earliest))
	for userID, m := range earliest {
		branch, err := idx.branchOf(userID)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, models.CohortAssignment{
			UserID:      userID,
			CohortMonth: MonthTrunc(m.StartDate),
			BranchID:    branch,
			Plan:        m.Plan,
		})
	}

	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].UserID < assignments[j].UserID
	})
	return assignments, nil
}

// cohortKey identifies a cohort partition.
type cohortKey struct {
	cohort time.Time
	branch string
	plan   models.Plan
}

// cohortPeriodKey identifies one period of a cohort partition.
type cohortPeriodKey struct {
	cohortKey
	period int
}

func keyOf(a models.CohortAssignment) cohortKey {
	return cohortKey{cohort: a.CohortMonth, branch: a.BranchID, plan: a.Plan}
}

// less orders cohort partitions by cohort month, branch, then plan rank.
func (k cohortKey) less(o cohortKey) bool {
	if !k.cohort.Equal(o.cohort) {
		return k.cohort.Before(o.cohort)
	}
	if k.branch != o.branch {
		return k.branch < o.branch
	}
	return k.plan.Rank() < o.plan.Rank()
}

func (k cohortPeriodKey) less(o cohortPeriodKey) bool {
	if k.cohortKey != o.cohortKey {
		return k.cohortKey.less(o.cohortKey)
	}
	return k.period < o.period
}
