// Package app wires configuration, logging, telemetry, the source pipeline,
// the history store and the HTTP surface into a single Application.
//
// New builds every component without starting anything, which lets the CLI
// binaries reuse the same wiring for a one-shot refresh. Start launches the
// WebSocket hub, the HTTP server and the refresh scheduler; Stop shuts them
// down in reverse order and flushes telemetry.
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM. Initialization errors are returned to
// the caller; the package never calls os.Exit.
package app
