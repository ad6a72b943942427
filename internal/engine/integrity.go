// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"fmt"

	"github.com/tomtom215/stride/internal/models"
)

// CheckIntegrity verifies that every subscription and activity event
// references a known user. It returns the first violation found.
func CheckIntegrity(in *models.Inputs) error {
	idx := indexUsers(in.Users)

	for i, s := range in.Subscriptions {
		if _, ok := idx[s.UserID]; !ok {
			return &IntegrityError{
				Rule:   RuleMembershipUser,
				Record: fmt.Sprintf("subscriptions[%d] user_id=%s", i, s.UserID),
			}
		}
	}
	for i, ev := range in.Events {
		if _, ok := idx[ev.UserID]; !ok {
			return &IntegrityError{
				Rule:   RuleEventUser,
				Record: fmt.Sprintf("activity_events[%d] user_id=%s", i, ev.UserID),
			}
		}
	}
	return nil
}
