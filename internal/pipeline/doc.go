// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package pipeline runs the fact computation end to end.

A run is:

 1. record the start in the run log
 2. load inputs from the Source
 3. validate every record
 4. compute the snapshot with the engine
 5. hand it to every Publisher (DuckDB)
 6. swap it into the in-memory Store
 7. record the outcome and metrics

A failure at any step aborts the run and is recorded as failed; the Store
keeps serving the previous snapshot. Each run gets a correlation ID that is
attached to every log line it emits.

NewBreakerSource wraps a Source in a circuit breaker. After the configured
number of consecutive load failures, runs fail immediately with
gobreaker.ErrOpenState until the open timeout elapses and a trial load succeeds.

	runner, err := pipeline.NewRunner(pipeline.Config{Interval: time.Hour}, pipeline.Dependencies{
	    Source:     db,
	    Engine:     engine.New(engine.Config{}),
	    Store:      store,
	    Publishers: []pipeline.Publisher{db},
	    RunLog:     db,
	})
*/
package pipeline
