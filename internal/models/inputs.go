// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import "time"

// Plan is a subscription tier from the closed set Basic, Standard, Pro.
type Plan string

const (
	PlanBasic    Plan = "Basic"
	PlanStandard Plan = "Standard"
	PlanPro      Plan = "Pro"

	// PlanNone is the bucket for activity with no overlapping membership.
	PlanNone Plan = ""
)

// Plans lists the valid plans in rank order.
var Plans = []Plan{PlanBasic, PlanStandard, PlanPro}

// Rank orders plans Basic < Standard < Pro. Unknown plans rank last.
func (p Plan) Rank() int {
	for i, known := range Plans {
		if p == known {
			return i
		}
	}
	return len(Plans)
}

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	return p.Rank() < len(Plans)
}

// User is immutable reference data for a member.
type User struct {
	UserID   string `json:"user_id" validate:"required"`
	BranchID string `json:"branch_id" validate:"required"`
	Gender   string `json:"gender,omitempty"`
	Age      int    `json:"age,omitempty" validate:"gte=0,lte=130"`
}

// Subscription is one raw subscription record. Price covers one billing
// period; a nil EndDate means the record is still active at the snapshot.
type Subscription struct {
	UserID    string     `json:"user_id" validate:"required"`
	Plan      Plan       `json:"plan" validate:"required,oneof=Basic Standard Pro"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date"`
	Price     float64    `json:"price" validate:"gte=0"`
}

// ActivityEvent is one workout occurrence.
type ActivityEvent struct {
	UserID    string    `json:"user_id" validate:"required"`
	EventDate time.Time `json:"event_date" validate:"required"`
	EventTime string    `json:"event_time" validate:"omitempty,datetime=15:04:05"`
	Category  string    `json:"category"`
}

// Inputs is a fixed-in-time copy of the three input streams.
type Inputs struct {
	Users         []User
	Subscriptions []Subscription
	Events        []ActivityEvent
}
