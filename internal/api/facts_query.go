// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/stride/internal/models"
)

// CohortLayout is the query format of the cohort filter.
const CohortLayout = "2006-01"

// defaultFactsLimit applies when the query has no limit.
const defaultFactsLimit = 1000

// Filter names accepted by fact endpoints.
const (
	filterBranch = "branch"
	filterPlan   = "plan"
	filterCohort = "cohort"
)

// FactsQuery is the parsed query string of a fact endpoint.
type FactsQuery struct {
	Branch string `json:"branch" validate:"omitempty,max=64"`
	Plan   string `json:"plan" validate:"omitempty,oneof=Basic Standard Pro"`
	Cohort string `json:"cohort" validate:"omitempty,datetime=2006-01"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100000"`
	Offset int    `json:"offset" validate:"gte=0"`

	cohortMonth time.Time
}

// parseFactsQuery reads and validates the query string.
func parseFactsQuery(r *http.Request) (*FactsQuery, *models.APIError) {
	q := r.URL.Query()
	fq := &FactsQuery{
		Branch: q.Get(filterBranch),
		Plan:   q.Get(filterPlan),
		Cohort: q.Get(filterCohort),
	}

	var ok bool
	if fq.Limit, ok = getIntParam(r, "limit", defaultFactsLimit); !ok {
		return nil, &models.APIError{Code: "VALIDATION_ERROR", Message: "limit must be an integer"}
	}
	if fq.Offset, ok = getIntParam(r, "offset", 0); !ok {
		return nil, &models.APIError{Code: "VALIDATION_ERROR", Message: "offset must be an integer"}
	}
	if apiErr := validateRequest(fq); apiErr != nil {
		return nil, apiErr
	}
	if fq.Cohort != "" {
		// layout already checked by the datetime rule
		fq.cohortMonth, _ = time.Parse(CohortLayout, fq.Cohort)
	}
	return fq, nil
}

// used lists the filters present in the query.
func (q *FactsQuery) used() []string {
	var names []string
	if q.Branch != "" {
		names = append(names, filterBranch)
	}
	if q.Plan != "" {
		names = append(names, filterPlan)
	}
	if q.Cohort != "" {
		names = append(names, filterCohort)
	}
	return names
}

func (q *FactsQuery) matchBranch(branch string) bool {
	return q.Branch == "" || q.Branch == branch
}

func (q *FactsQuery) matchPlan(plan models.Plan) bool {
	return q.Plan == "" || models.Plan(q.Plan) == plan
}

func (q *FactsQuery) matchCohort(cohort time.Time) bool {
	return q.Cohort == "" || q.cohortMonth.Equal(cohort)
}

func (q *FactsQuery) matchPartition(cohort time.Time, branch string, plan models.Plan) bool {
	return q.matchCohort(cohort) && q.matchBranch(branch) && q.matchPlan(plan)
}

// factPage is one page of a filtered fact set.
type factPage struct {
	rows  interface{}
	count int
	total int
}

// factSet describes one fact set served by the API.
type factSet struct {
	filters []string
	rows    func(s *models.Snapshot, q *FactsQuery) factPage
}

func (fs factSet) supports(filter string) bool {
	for _, f := range fs.filters {
		if f == filter {
			return true
		}
	}
	return false
}

var (
	noFilters        []string
	partitionFilters = []string{filterBranch, filterPlan, filterCohort}
	segmentFilters   = []string{filterBranch, filterPlan}
)

// factSets maps the {set} path segment to its rows.
var factSets = map[string]factSet{
	models.FactSetCalendar: {
		filters: noFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Calendar, q, nil)
		},
	},
	models.FactSetMemberships: {
		filters: []string{filterPlan},
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Memberships, q, func(m models.MembershipInterval) bool {
				return q.matchPlan(m.Plan)
			})
		},
	},
	models.FactSetCohorts: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Cohorts, q, func(c models.CohortAssignment) bool {
				return q.matchPartition(c.CohortMonth, c.BranchID, c.Plan)
			})
		},
	},
	models.FactSetMembershipMonth: {
		filters: segmentFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.MembershipFacts, q, func(f models.MonthlyMembershipFact) bool {
				return q.matchBranch(f.BranchID) && q.matchPlan(f.Plan)
			})
		},
	},
	models.FactSetActivityMonth: {
		filters: segmentFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.ActivityFacts, q, func(f models.MonthlyActivityFact) bool {
				return q.matchBranch(f.BranchID) && q.matchPlan(f.Plan)
			})
		},
	},
	models.FactSetRetention: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Retention, q, func(f models.RetentionRecord) bool {
				return q.matchPartition(f.CohortMonth, f.BranchID, f.Plan)
			})
		},
	},
	models.FactSetChurn: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Churn, q, func(f models.CohortChurnFact) bool {
				return q.matchPartition(f.CohortMonth, f.BranchID, f.Plan)
			})
		},
	},
	models.FactSetEngagement: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.Engagement, q, func(f models.CohortEngagementFact) bool {
				return q.matchPartition(f.CohortMonth, f.BranchID, f.Plan)
			})
		},
	},
	models.FactSetLTV: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.LTV, q, func(f models.CohortLTVFact) bool {
				return q.matchPartition(f.CohortMonth, f.BranchID, f.Plan)
			})
		},
	},
	models.FactSetCohortSummary: {
		filters: partitionFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.CohortSummary, q, func(f models.CohortPeriodSummary) bool {
				return q.matchPartition(f.CohortMonth, f.BranchID, f.Plan)
			})
		},
	},
	models.FactSetRetentionCurve: {
		filters: noFilters,
		rows: func(s *models.Snapshot, q *FactsQuery) factPage {
			return selectRows(s.RetentionCurve, q, nil)
		},
	},
}

// factSetNames returns the served fact set names in sorted order.
func factSetNames() []string {
	names := make([]string, 0, len(factSets))
	for name := range factSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectRows filters rows with keep (nil keeps all) and cuts the requested
// page. The page is never nil so empty sets encode as [].
func selectRows[T any](rows []T, q *FactsQuery, keep func(T) bool) factPage {
	matched := rows
	if keep != nil {
		matched = make([]T, 0, len(rows))
		for _, row := range rows {
			if keep(row) {
				matched = append(matched, row)
			}
		}
	}

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	page := make([]T, end-start)
	copy(page, matched[start:end])
	return factPage{rows: page, count: len(page), total: total}
}
