// Package app provides application bootstrap and lifecycle management for knowledgecore.
//
// # Architecture Overview
//
// The app package is the bootstrap layer between the command line and the rest of
// the module. It has four parts:
//
//  1. **Configuration (`config.go`)**: runtime flags for one invocation
//  2. **Bootstrap (`bootstrap.go`)**: logging, settings loading and the Application type
//  3. **Services (`services.go`)**: construction of the router, engine and servers
//  4. **Modes (`modes.go`)**: the gateway and stdio execution modes
//
// # Bootstrap Sequence
//
//  1. Logging starts at INFO (DEBUG with --debug) so settings problems are visible
//  2. Settings load from defaults, then config.yaml, then the environment
//  3. Logging is reconfigured from the loaded log level and the execution mode
//  4. Services are constructed; no connection is prepared yet
//
// # Execution Modes
//
// **Gateway mode (default)**: initializes the fleet router, serves the HTTP gateway on
// the configured host and port, notifies systemd that the service is ready and blocks
// until SIGINT or SIGTERM. Logs are JSON on stdout.
//
// **Stdio mode**: initializes the fleet router and serves MCP over stdin and stdout
// until the client disconnects. Logs go to stderr as text so they never corrupt the
// protocol stream.
//
// In both modes shutdown closes the router's clients after the transport stops.
//
// # Example
//
//	cfg := app.NewConfig(false, false, "/etc/knowledgecore")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
