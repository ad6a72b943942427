// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package models defines data structures for the Stride application.

This package contains the typed input streams consumed by the cohort engine,
the derived dimensions and fact sets it produces, and the API response
wrappers used by the read API. It serves as the single source of truth for
data structure definitions and carries no behavior beyond small helpers.

Model Categories:

1. Input Streams (produced by the ingestion collaborator):
  - User: member reference data with branch affiliation and demographics
  - Subscription: one raw billing record for a plan
  - ActivityEvent: one workout occurrence

2. Derived Dimensions:
  - CalendarMonth: month buckets spanning the data range
  - MembershipInterval: consolidated span per user and plan
  - CohortAssignment: cohort month per user

3. Fact Sets:
  - MonthlyMembershipFact, MonthlyActivityFact (month x branch x plan)
  - RetentionRecord (user x activity month)
  - CohortChurnFact, CohortEngagementFact, CohortLTVFact,
    CohortPeriodSummary (cohort x branch x plan x cohort period)
  - RetentionPoint (retention curve across cohorts)

4. Snapshot:
  - Snapshot: a complete, immutable result of one pipeline run

Nullable metrics (churn percentages, averages and ratios) are *float64 and
encode as JSON null when undefined. Dates are UTC calendar dates.
*/
package models
