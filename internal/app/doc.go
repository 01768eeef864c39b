// Package app wires the runtime shared by the covidcli commands.
//
// # Initialization Flow
//
//  1. Load configuration from environment and config.yaml
//  2. Resolve data, output and log directories
//  3. Initialize the global slog logger
//  4. Initialize tracing and the metrics registry
//
// # Usage
//
//	application, err := app.NewApplication("infections")
//	if err != nil {
//		slog.Error("Failed to start", slog.String("error", err.Error()))
//		os.Exit(1)
//	}
//	err = application.Run(func(ctx context.Context) error {
//		...
//	})
//
// Run cancels its context on SIGINT and SIGTERM, tags the context with a
// fresh trace ID and flushes telemetry before returning.
package app
