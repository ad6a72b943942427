// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package validation

import (
	"strconv"

	"github.com/tomtom215/stride/internal/engine"
	"github.com/tomtom215/stride/internal/models"
)

// Input stream names.
const (
	StreamUsers         = "users"
	StreamSubscriptions = engine.StreamSubscriptions
	StreamEvents        = "activity_events"
)

// ValidateInputs checks every record of every stream and returns the first
// failure as an *engine.ValidationError. Duplicate user IDs are rejected.
func ValidateInputs(in *models.Inputs) error {
	seen := make(map[string]int, len(in.Users))
	for i := range in.Users {
		u := &in.Users[i]
		if err := check(StreamUsers, i, u.UserID, u); err != nil {
			return err
		}
		if first, dup := seen[u.UserID]; dup {
			return &engine.ValidationError{
				Stream:    StreamUsers,
				Index:     i,
				RecordKey: u.UserID,
				Field:     "user_id",
				Rule:      "unique",
				Message:   "user_id duplicates users[" + strconv.Itoa(first) + "]",
			}
		}
		seen[u.UserID] = i
	}

	for i := range in.Subscriptions {
		s := &in.Subscriptions[i]
		if err := check(StreamSubscriptions, i, s.UserID, s); err != nil {
			return err
		}
	}

	for i := range in.Events {
		ev := &in.Events[i]
		if err := check(StreamEvents, i, ev.UserID, ev); err != nil {
			return err
		}
	}
	return nil
}

func check(stream string, index int, key string, record interface{}) error {
	verr := ValidateStruct(record)
	if verr == nil {
		return nil
	}
	first := verr.Errors()[0]
	return &engine.ValidationError{
		Stream:    stream,
		Index:     index,
		RecordKey: key,
		Field:     first.Field(),
		Rule:      first.Tag(),
		Param:     first.Param(),
		Message:   first.Error(),
	}
}
