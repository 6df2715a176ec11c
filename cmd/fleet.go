package cmd

import (
	"context"
	"fmt"
	"os"

	"knowledgecore/internal/cli"
	"knowledgecore/internal/config"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/pkg/logging"
)

// fleetSession is an initialized router for a single command invocation.
type fleetSession struct {
	Settings config.Settings
	Resolver *identity.Resolver
	Router   *fleet.Router
}

// Close releases the router's connections.
func (s *fleetSession) Close() {
	s.Router.Close()
}

// initCLILogging keeps command output clean: warnings and errors only, on stderr,
// unless --debug is set.
func initCLILogging(debug bool) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)
}

// loadSettings loads the settings named by the flags.
func loadSettings(flags *cli.CommandFlags) (config.Settings, error) {
	initCLILogging(flags.Debug)
	settings, err := config.LoadSettings(flags.ConfigPath)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return settings, nil
}

// connectFleet loads the settings and initializes a router over them.
func connectFleet(ctx context.Context, flags *cli.CommandFlags) (*fleetSession, error) {
	settings, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}

	resolver, err := identity.NewResolver(settings.DefaultProfile)
	if err != nil {
		return nil, err
	}
	router := fleet.New(settings, resolver)
	if err := router.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize fleet router: %w", err)
	}
	return &fleetSession{Settings: settings, Resolver: resolver, Router: router}, nil
}
