package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"knowledgecore/internal/config"
	"knowledgecore/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs
// knowledgecore.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load settings, configure logging, construct services
//  2. Execution phase: initialize the fleet router and serve the selected mode
//
// Example usage:
//
//	cfg := app.NewConfig(true, false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// logOutput is where logs go; stdio mode always overrides it with stderr.
var logOutput io.Writer = os.Stdout

// NewApplication creates and initializes a new application instance with the provided
// configuration. It returns an error if the settings cannot be loaded or validated.
func NewApplication(cfg *Config) (*Application, error) {
	startLevel := logging.LevelInfo
	if cfg.Debug {
		startLevel = logging.LevelDebug
	}
	logging.InitForCLI(startLevel, logWriter(cfg))

	var settings config.Settings
	if cfg.Settings != nil {
		settings = *cfg.Settings
	} else {
		loaded, err := config.LoadSettings(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		settings = loaded
	}

	configureLogging(cfg, settings)

	services, err := InitializeServices(cfg, settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the constructed components.
func (a *Application) Services() *Services {
	return a.services
}

// Run executes the selected mode. It blocks until ctx is cancelled, a termination
// signal arrives, or (in stdio mode) the client disconnects.
func (a *Application) Run(ctx context.Context) error {
	if a.config.Stdio {
		return runStdioMode(ctx, a.services)
	}
	return runGatewayMode(ctx, a.services)
}

func logWriter(cfg *Config) io.Writer {
	if cfg.Stdio {
		return os.Stderr
	}
	return logOutput
}

// configureLogging applies the configured level. --debug and DEBUG=true both force
// DEBUG.
func configureLogging(cfg *Config, settings config.Settings) {
	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		logging.Warn("Bootstrap", "%v, using INFO", err)
	}
	if cfg.Debug || settings.Debug {
		level = logging.LevelDebug
	}

	if cfg.Stdio {
		logging.InitForCLI(level, os.Stderr)
		return
	}
	logging.InitForJSON(level, logOutput)
}
