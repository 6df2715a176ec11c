package cmd

import (
	"context"
	"fmt"

	"knowledgecore/internal/app"
	"knowledgecore/internal/cli"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveStdio serves MCP over stdin and stdout instead of the HTTP gateway.
var serveStdio bool

// serveConfigPath specifies the configuration directory containing config.yaml.
var serveConfigPath string

// serveCmd defines the serve command structure.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the knowledgecore gateway",
	Long: `Starts the knowledgecore gateway in front of the knowledge fleet.

By default it serves HTTP on the configured host and port (0.0.0.0:8000):
  /health, /status   health and fleet status
  /metrics           Prometheus metrics
  /mcp               MCP tools over streamable HTTP
  /api/v1/...        REST API

With --stdio it serves the MCP tools over stdin and stdout instead, for MCP clients
that launch the server as a subprocess.

Configuration:
  Settings come from defaults, then config.yaml in --config-path, then environment
  variables (FLEET_<PROFILE>_URL, MNEMONIC_<PROFILE>, DEFAULT_PROFILE, LOG_LEVEL,
  GATEWAY_HOST, GATEWAY_PORT, ANYTYPE_* transport tuning).

When run under systemd with Type=notify the gateway reports readiness once it is
listening.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveStdio, serveConfigPath)
	cfg.Version = GetVersion()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", cli.DefaultConfigPath(), "Configuration directory")
}
