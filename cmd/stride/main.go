// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/stride/internal/api"
	"github.com/tomtom215/stride/internal/config"
	"github.com/tomtom215/stride/internal/database"
	"github.com/tomtom215/stride/internal/engine"
	"github.com/tomtom215/stride/internal/logging"
	"github.com/tomtom215/stride/internal/pipeline"
	"github.com/tomtom215/stride/internal/snapshot"
	"github.com/tomtom215/stride/internal/supervisor"
	"github.com/tomtom215/stride/internal/supervisor/services"
)

const (
	modeServe = "serve"
	modeOnce  = "once"
)

const shutdownTimeout = 10 * time.Second

func main() {
	mode := flag.String("mode", modeServe, "run mode: serve or once")
	flag.Parse()

	if *mode != modeServe && *mode != modeOnce {
		fmt.Fprintf(os.Stderr, "unknown mode %q (want %s or %s)\n", *mode, modeServe, modeOnce)
		os.Exit(2)
	}

	if err := run(*mode); err != nil {
		logging.Fatal().Err(err).Str("mode", *mode).Msg("Stride exited with error")
	}
}

func run(mode string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().Str("mode", mode).Msg("Starting Stride")

	horizon, err := cfg.Engine.Horizon()
	if err != nil {
		return err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store := snapshot.New()
	runner, err := pipeline.NewRunner(pipeline.Config{
		Interval:     cfg.Pipeline.Interval,
		Timeout:      cfg.Pipeline.Timeout,
		RunOnStartup: cfg.Pipeline.RunOnStartup,
	}, pipeline.Dependencies{
		Source: pipeline.NewBreakerSource(db, pipeline.BreakerConfig{
			ConsecutiveFailures: cfg.Pipeline.SourceBreakerFailures,
			OpenTimeout:         cfg.Pipeline.SourceBreakerTimeout,
		}),
		Engine:     engine.New(engine.Config{Horizon: horizon, Parallelism: cfg.Engine.Parallelism}),
		Store:      store,
		Publishers: []pipeline.Publisher{db},
		RunLog:     db,
		History:    db,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mode == modeOnce {
		snap, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		logging.Info().
			Int64("generation", snap.Metadata.Generation).
			Int64("compute_ms", snap.Metadata.ComputeTimeMs).
			Msg("Pipeline run complete")
		return nil
	}

	return serve(ctx, cfg, db, store, runner)
}

func serve(ctx context.Context, cfg *config.Config, db *database.DB, store *snapshot.Store, runner *pipeline.Runner) error {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
		logging.Warn().Msg("CORS is configured with wildcard origin (CORS_ORIGINS=*)")
	}

	handler := api.NewHandler(store, db, db)
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.NewRouter(handler, api.NewMiddleware(api.MiddlewareConfigFromServer(cfg.Server))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree.AddPipelineService(services.NewPipelineService(runner))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
	logging.Info().Str("addr", server.Addr).Dur("interval", cfg.Pipeline.Interval).Msg("Starting supervisor tree")

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Stride stopped")
	return nil
}
