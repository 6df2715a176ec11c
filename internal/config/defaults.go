package config

import (
	"fmt"

	"knowledgecore/internal/identity"
)

const (
	DefaultGatewayHost      = "0.0.0.0"
	DefaultGatewayPort      = 8000
	DefaultLogLevel         = "INFO"
	DefaultTimeoutMs        = 30000
	DefaultConnectTimeoutMs = 10000
	DefaultMaxRetries       = 3
	DefaultRetryDelayMs     = 500
	DefaultBatchDelayMs     = 50

	// backendPort is the port every heart listens on inside the fleet network.
	backendPort = 31009
)

// DefaultProfileURL returns the in-network address of a profile's backend.
func DefaultProfileURL(name identity.Name) string {
	return fmt.Sprintf("http://heart-%s:%d", name, backendPort)
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	fleet := make(map[string]ProfileConfig, len(identity.Names()))
	for _, name := range identity.Names() {
		fleet[string(name)] = ProfileConfig{URL: DefaultProfileURL(name)}
	}
	return Settings{
		Gateway: GatewayConfig{
			Host: DefaultGatewayHost,
			Port: DefaultGatewayPort,
		},
		LogLevel:       DefaultLogLevel,
		DefaultProfile: string(identity.Personal),
		Fleet:          fleet,
		Backend: BackendConfig{
			TimeoutMs:        DefaultTimeoutMs,
			ConnectTimeoutMs: DefaultConnectTimeoutMs,
			MaxRetries:       DefaultMaxRetries,
			RetryDelayMs:     DefaultRetryDelayMs,
			BatchDelayMs:     DefaultBatchDelayMs,
		},
	}
}
