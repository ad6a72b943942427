// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

/*
Package supervisor builds the suture v4 service tree used by "stride -mode=serve".

	stride (root)
	├── pipeline-layer
	│   └── pipeline-runner
	└── api-layer
	    └── http-server

Supervisor events (service panics, restarts, backoff) are logged through
sutureslog, which is handed a *slog.Logger backed by the global zerolog
logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewPipelineService(runner))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)

Service adapters live in the services subpackage.
*/
package supervisor
