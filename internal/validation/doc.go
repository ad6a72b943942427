// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

// Package validation checks input records with go-playground/validator v10.
//
// Rules live on the model structs as validate tags. ValidateInputs walks the
// users, subscriptions and activity_events streams and reports the first bad
// record as an *engine.ValidationError naming the stream, the record index,
// the record's user_id, the field and the rule:
//
//	if err := validation.ValidateInputs(in); err != nil {
//	    var verr *engine.ValidationError
//	    if errors.As(err, &verr) {
//	        logging.Error().Str("stream", verr.Stream).Int("index", verr.Index).Msg(verr.Message)
//	    }
//	}
//
// Beyond the tags, users must be unique by user_id and a subscription may not
// end before it starts.
package validation
