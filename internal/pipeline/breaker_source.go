// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package pipeline

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stride/internal/logging"
	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// BreakerConfig controls the circuit breaker around a Source.
type BreakerConfig struct {
	// Name labels the breaker in logs and metrics. Default: "input-source"
	Name string

	// ConsecutiveFailures opens the circuit. Zero disables the breaker.
	ConsecutiveFailures uint32

	// OpenTimeout is the wait before a half-open trial load. Default: 5m
	OpenTimeout time.Duration
}

// BreakerSource rejects loads while the wrapped Source keeps failing.
//
// Cancellation and deadlines are excluded from the counts: they neither
// reset nor extend a failure streak.
type BreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[*models.Inputs]
	name   string
}

// NewBreakerSource wraps source. With ConsecutiveFailures zero the source is
// returned unchanged.
func NewBreakerSource(source Source, cfg BreakerConfig) Source {
	if cfg.ConsecutiveFailures == 0 {
		return source
	}
	if cfg.Name == "" {
		cfg.Name = "input-source"
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	log := logging.WithComponent("circuit-breaker")

	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[*models.Inputs](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				log.Warn().Uint32("failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		IsExcluded: isInterruption,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerSource{source: source, cb: cb, name: cfg.Name}
}

// LoadInputs implements Source.
func (b *BreakerSource) LoadInputs(ctx context.Context) (*models.Inputs, error) {
	in, err := b.cb.Execute(func() (*models.Inputs, error) {
		return b.source.LoadInputs(ctx)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	case isInterruption(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "excluded").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return in, err
}

// State returns the breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

// isInterruption reports errors caused by the caller giving up.
func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
