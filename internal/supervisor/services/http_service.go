// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/stride/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
//
// Tests substitute a mock; production passes the *http.Server that serves
// the read API:
//   - ListenAndServe() error
//   - Shutdown(ctx context.Context) error
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the read API server in the api layer of the
// supervisor tree.
//
// suture expects Serve to block until its context ends, while http.Server
// blocks in ListenAndServe until Shutdown is called. Serve bridges the two:
//
//  1. ListenAndServe runs in its own goroutine
//  2. Serve waits for a server error or for the supervisor to stop
//  3. on stop, Shutdown drains in-flight requests within shutdownTimeout
//
// A listen failure is returned so suture restarts the service with backoff.
// The pipeline layer is untouched by API restarts.
//
//	server := &http.Server{Addr: cfg.Server.Address(), Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server.
//
// shutdownTimeout bounds how long open requests (large fact pages, for
// instance) may take to finish on shutdown. Default: 10s
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service.
//
// It returns the context error after a graceful shutdown, a wrapped error
// when the server fails or cannot shut down in time, and nil if the server
// was closed from outside. http.ErrServerClosed is expected and not reported.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	log := logging.WithComponent(h.name)

	// closed when ListenAndServe returns; carries its error, if any
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		log.Warn().Msg("HTTP server closed outside of supervisor shutdown")
		return nil

	case <-ctx.Done():
		// ctx is already done; shutdown needs its own deadline
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		log.Info().Dur("timeout", h.shutdownTimeout).Msg("Shutting down HTTP server")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return h.name
}
