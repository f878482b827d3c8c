// Package bootstrap wires a process runner from its configuration.
//
// NewApp validates the config, sets up logging, starts OpenTelemetry export
// when enabled, loads the command catalog and builds a process.Adapter:
//
//	cfg, err := config.Load("build-runner")
//	app, err := bootstrap.NewApp(ctx, cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    out, err := app.Output(ctx, "test")
//	    ...
//	})
//
// RunTask cancels the task on SIGINT or SIGTERM, which terminates any running
// command, and then shuts the exporters down.
package bootstrap
