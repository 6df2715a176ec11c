package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"knowledgecore/internal/identity"
	"knowledgecore/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/knowledgecore"
	configFileName = "config.yaml"
)

// Indirections so tests can control the environment.
var (
	osUserHomeDir = os.UserHomeDir
	lookupEnv     = os.LookupEnv
)

// GetDefaultConfigPath returns ~/.config/knowledgecore.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadSettings builds the settings from defaults, then config.yaml in configPath (if
// present), then environment overrides, and validates the result.
func LoadSettings(configPath string) (Settings, error) {
	settings := DefaultSettings()

	if configPath != "" {
		if err := loadFile(filepath.Join(configPath, configFileName), &settings); err != nil {
			return Settings{}, err
		}
	}

	errs := NewConfigurationErrorCollection()
	applyEnv(&settings, errs)
	if errs.HasErrors() {
		return Settings{}, errs
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func loadFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", path)
			return nil
		}
		return fmt.Errorf("error reading config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		errs := NewConfigurationErrorCollection()
		errs.Add(ConfigurationError{
			Source:      "file",
			Field:       path,
			ErrorType:   "parse",
			Message:     err.Error(),
			Suggestions: []string{"check the YAML syntax of " + configFileName},
		})
		return errs
	}

	// A fleet entry that only sets a credential keeps its in-network default URL.
	for name, pc := range settings.Fleet {
		if pc.URL != "" {
			continue
		}
		if n, err := identity.ParseName(name); err == nil {
			pc.URL = DefaultProfileURL(n)
			settings.Fleet[name] = pc
		}
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return nil
}

func applyEnv(s *Settings, errs *ConfigurationErrorCollection) {
	if s.Fleet == nil {
		s.Fleet = make(map[string]ProfileConfig)
	}
	for _, name := range identity.Names() {
		upper := strings.ToUpper(string(name))
		pc := s.Fleet[string(name)]
		if v, ok := lookupEnv("FLEET_" + upper + "_URL"); ok && v != "" {
			pc.URL = v
		}
		if v, ok := lookupEnv("MNEMONIC_" + upper); ok && v != "" {
			pc.Credential = NewSecret(v)
		}
		if pc.URL != "" || !pc.Credential.IsEmpty() {
			s.Fleet[string(name)] = pc
		}
	}

	envString("DEFAULT_PROFILE", &s.DefaultProfile)
	envString("LOG_LEVEL", &s.LogLevel)
	envString("GATEWAY_HOST", &s.Gateway.Host)
	envBool(errs, "DEBUG", &s.Debug)
	envInt(errs, "GATEWAY_PORT", &s.Gateway.Port)
	envInt(errs, "ANYTYPE_TIMEOUT_MS", &s.Backend.TimeoutMs)
	envInt(errs, "ANYTYPE_CONNECT_TIMEOUT_MS", &s.Backend.ConnectTimeoutMs)
	envInt(errs, "ANYTYPE_MAX_RETRIES", &s.Backend.MaxRetries)
	envInt(errs, "ANYTYPE_RETRY_DELAY_MS", &s.Backend.RetryDelayMs)
	envInt(errs, "ANYTYPE_BATCH_DELAY_MS", &s.Backend.BatchDelayMs)
}

func envString(key string, dst *string) {
	if v, ok := lookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(errs *ConfigurationErrorCollection, key string, dst *int) {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		errs.AddError("env", key, "parse", fmt.Sprintf("must be an integer, got %q", v))
		return
	}
	*dst = n
}

func envBool(errs *ConfigurationErrorCollection, key string, dst *bool) {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		errs.AddError("env", key, "parse", fmt.Sprintf("must be a boolean, got %q", v))
		return
	}
	*dst = b
}
