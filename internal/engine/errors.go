// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is to classify a run failure:
//
//	if errors.Is(err, engine.ErrIntegrity) { ... }
var (
	ErrValidation = errors.New("validation error")
	ErrIntegrity  = errors.New("integrity error")
	ErrEmptyInput = errors.New("empty input")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	// Stream is the input stream: users, subscriptions or activity_events
	Stream string

	// Index is the position of the record in its stream
	Index int

	// RecordKey identifies the record (usually its user_id)
	RecordKey string

	Field string
	Rule  string

	// Param is the rule parameter, "0" for gte=0. Empty for rules without one.
	Param string

	// Message is a human-readable description
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s[%d] (%s) field %s: %s",
		e.Stream, e.Index, e.RecordKey, e.Field, e.Message)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IntegrityError reports a referential mismatch or an internal
// inconsistency between derived facts.
type IntegrityError struct {
	Rule   string
	Record string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check %q failed for %s", e.Rule, e.Record)
}

// Is makes IntegrityError match ErrIntegrity.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// EmptyInputError reports that there is no data to bound the calendar.
type EmptyInputError struct {
	Reason string
}

func (e *EmptyInputError) Error() string {
	return "empty input: " + e.Reason
}

// Is makes EmptyInputError match ErrEmptyInput.
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// Integrity rule names.
const (
	RuleMembershipUser   = "membership_references_user"
	RuleEventUser        = "event_references_user"
	RuleNegativePeriod   = "non_negative_cohort_period"
	RuleChurnDenominator = "churn_has_active_denominator"
)
