package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"knowledgecore/internal/server"
	"knowledgecore/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
)

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// notify sends state to systemd. Outside systemd it does nothing.
func notify(state string) {
	sent, err := sdNotify(false, state)
	if err != nil {
		logging.Warn("Lifecycle", "Failed to notify systemd (%s): %v", state, err)
		return
	}
	if sent {
		logging.Debug("Lifecycle", "Notified systemd: %s", state)
	}
}

// runGatewayMode serves the HTTP gateway until ctx is cancelled or the process gets
// SIGINT or SIGTERM.
//
// Lifecycle:
//   - initialize the fleet router
//   - start the gateway and report READY to systemd
//   - on signal report STOPPING, drain the gateway, close the router
func runGatewayMode(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Router.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize fleet router: %w", err)
	}
	defer services.Router.Close()

	if err := services.Gateway.Start(services.GatewayAddr); err != nil {
		return err
	}

	notify(daemon.SdNotifyReady)
	logging.Info("Lifecycle", "Gateway ready on %s (default profile %s). Press Ctrl+C to stop.",
		services.Gateway.Addr(), services.Resolver.Default())

	<-ctx.Done()

	notify(daemon.SdNotifyStopping)
	logging.Info("Lifecycle", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout+time.Second)
	defer cancel()
	return services.Gateway.Shutdown(shutdownCtx)
}

// runStdioMode serves MCP over stdin and stdout until the client disconnects or the
// process gets SIGINT or SIGTERM.
func runStdioMode(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Router.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize fleet router: %w", err)
	}
	defer services.Router.Close()

	logging.Info("Lifecycle", "Serving MCP over stdio (default profile %s)", services.Resolver.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- services.MCP.ServeStdio()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
