package app

import (
	"knowledgecore/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces DEBUG logging regardless of the configured level.
	Debug bool

	// Stdio serves MCP over stdin and stdout instead of the HTTP gateway.
	Stdio bool

	// Custom configuration path (optional)
	ConfigPath string

	// Version is reported by /health, /status and the MCP handshake.
	Version string

	// Settings, when set, are used as is and nothing is loaded.
	Settings *config.Settings
}

// NewConfig creates a new application configuration
func NewConfig(debug, stdio bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Stdio:      stdio,
		ConfigPath: configPath,
		Version:    "dev",
	}
}
