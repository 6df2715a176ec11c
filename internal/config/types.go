package config

import (
	"time"

	"knowledgecore/internal/identity"
)

// Settings is the complete runtime configuration.
type Settings struct {
	Gateway        GatewayConfig            `yaml:"gateway"`
	LogLevel       string                   `yaml:"logLevel"`
	Debug          bool                     `yaml:"debug"`
	DefaultProfile string                   `yaml:"defaultProfile"`
	Fleet          map[string]ProfileConfig `yaml:"fleet"`
	Backend        BackendConfig            `yaml:"backend"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProfileConfig configures one fleet member.
type ProfileConfig struct {
	URL        string `yaml:"url"`
	Credential Secret `yaml:"credential"`
}

// BackendConfig holds transport tuning shared by every fleet member.
type BackendConfig struct {
	TimeoutMs        int `yaml:"timeoutMs"`
	ConnectTimeoutMs int `yaml:"connectTimeoutMs"`
	MaxRetries       int `yaml:"maxRetries"`
	RetryDelayMs     int `yaml:"retryDelayMs"`
	BatchDelayMs     int `yaml:"batchDelayMs"`
}

// Timeout is the overall per-request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// ConnectTimeout bounds establishing a connection.
func (b BackendConfig) ConnectTimeout() time.Duration {
	return time.Duration(b.ConnectTimeoutMs) * time.Millisecond
}

// RetryDelay is the initial backoff between transient-failure retries.
func (b BackendConfig) RetryDelay() time.Duration {
	return time.Duration(b.RetryDelayMs) * time.Millisecond
}

// BatchDelay is the pause between consecutive creations during reconciliation.
func (b BackendConfig) BatchDelay() time.Duration {
	return time.Duration(b.BatchDelayMs) * time.Millisecond
}

// Profile is a resolved fleet member.
type Profile struct {
	Name       identity.Name
	URL        string
	Credential Secret
}

// Profiles returns the configured fleet members in the fixed profile order.
func (s Settings) Profiles() []Profile {
	var out []Profile
	for _, name := range identity.Names() {
		if p, ok := s.Profile(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// Profile returns the configuration of a single fleet member.
func (s Settings) Profile(name identity.Name) (Profile, bool) {
	pc, ok := s.Fleet[string(name)]
	if !ok || pc.URL == "" {
		return Profile{}, false
	}
	return Profile{Name: name, URL: pc.URL, Credential: pc.Credential}, true
}
