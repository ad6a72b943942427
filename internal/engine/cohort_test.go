// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"testing"

	"github.com/tomtom215/stride/internal/models"
)

func TestAssignCohorts_EarliestInterval(t *testing.T) {
	t.Parallel()

	users := []models.User{{UserID: "u1", BranchID: "north"}, {UserID: "u2", BranchID: "south"}}
	intervals := []models.MembershipInterval{
		interval("u1", models.PlanPro, "2023-04-02", ""),
		interval("u1", models.PlanBasic, "2023-01-15", "2023-03-31"),
		interval("u2", models.PlanStandard, "2023-02-28", ""),
	}

	cohorts, err := AssignCohorts(intervals, users)
	checkNoError(t, err)
	requireLen(t, cohorts, 2)

	checkEqual(t, cohorts[0], models.CohortAssignment{UserID: "u1", CohortMonth: month("2023-01"), BranchID: "north", Plan: models.PlanBasic})
	checkEqual(t, cohorts[1], models.CohortAssignment{UserID: "u2", CohortMonth: month("2023-02"), BranchID: "south", Plan: models.PlanStandard})
}

func TestAssignCohorts_TieBreakByPlanRank(t *testing.T) {
	t.Parallel()

	users := []models.User{{UserID: "u1", BranchID: "north"}}
	for _, order := range [][]models.Plan{
		{models.PlanPro, models.PlanStandard},
		{models.PlanStandard, models.PlanPro},
	} {
		intervals := []models.MembershipInterval{
			interval("u1", order[0], "2023-01-15", ""),
			interval("u1", order[1], "2023-01-15", ""),
		}
		cohorts, err := AssignCohorts(intervals, users)
		checkNoError(t, err)
		requireLen(t, cohorts, 1)
		checkEqual(t, cohorts[0].Plan, models.PlanStandard, "input order %v", order)
	}
}

func TestAssignCohorts_Idempotent(t *testing.T) {
	t.Parallel()

	users := []models.User{{UserID: "u1", BranchID: "a"}, {UserID: "u2", BranchID: "b"}, {UserID: "u3", BranchID: "a"}}
	intervals := []models.MembershipInterval{
		interval("u3", models.PlanPro, "2023-05-01", ""),
		interval("u1", models.PlanBasic, "2023-01-15", "2023-03-31"),
		interval("u2", models.PlanPro, "2023-02-01", ""),
		interval("u2", models.PlanBasic, "2023-02-01", ""),
		interval("u1", models.PlanStandard, "2023-04-01", ""),
	}

	first, err := AssignCohorts(intervals, users)
	checkNoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := AssignCohorts(intervals, users)
		checkNoError(t, err)
		checkEqual(t, again, first)
	}
}

func TestAssignCohorts_UnknownUser(t *testing.T) {
	t.Parallel()

	intervals := []models.MembershipInterval{interval("ghost", models.PlanBasic, "2023-01-01", "")}
	_, err := AssignCohorts(intervals, nil)
	checkError(t, err)
	checkErrorIs(t, err, ErrIntegrity)

	var ierr *IntegrityError
	requireErrorAs(t, err, &ierr)
	checkEqual(t, ierr.Rule, RuleMembershipUser)
	checkContains(t, ierr.Record, "ghost")
}
