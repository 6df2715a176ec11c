package config

import (
	"fmt"
	"net/url"
	"strings"

	"knowledgecore/internal/identity"
	"knowledgecore/pkg/logging"
)

// Validate checks the settings and returns a *ConfigurationErrorCollection listing
// every problem, or nil.
func (s Settings) Validate() error {
	errs := NewConfigurationErrorCollection()

	if _, err := identity.ParseName(s.DefaultProfile); err != nil {
		errs.Add(ConfigurationError{
			Source:      "settings",
			Field:       "defaultProfile",
			ErrorType:   "validation",
			Message:     err.Error(),
			Suggestions: []string{"set DEFAULT_PROFILE to personal, work or research"},
		})
	}

	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs.AddError("settings", "logLevel", "validation", err.Error())
	}

	if s.Gateway.Port <= 0 || s.Gateway.Port > 65535 {
		errs.AddError("settings", "gateway.port", "validation",
			fmt.Sprintf("must be between 1 and 65535, got %d", s.Gateway.Port))
	}

	for name, pc := range s.Fleet {
		field := "fleet." + name
		if _, err := identity.ParseName(name); err != nil {
			errs.AddError("settings", field, "validation", err.Error())
			continue
		}
		if err := ValidateURL(pc.URL); err != nil {
			errs.AddError("settings", field+".url", "validation", err.Error())
		}
	}
	if len(s.Profiles()) == 0 {
		errs.AddError("settings", "fleet", "validation", "at least one profile must have a URL")
	}

	validatePositive(errs, "backend.timeoutMs", s.Backend.TimeoutMs)
	validatePositive(errs, "backend.connectTimeoutMs", s.Backend.ConnectTimeoutMs)
	validatePositive(errs, "backend.maxRetries", s.Backend.MaxRetries)
	validateNonNegative(errs, "backend.retryDelayMs", s.Backend.RetryDelayMs)
	validateNonNegative(errs, "backend.batchDelayMs", s.Backend.BatchDelayMs)

	return errs.errOrNil()
}

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

func validatePositive(errs *ConfigurationErrorCollection, field string, v int) {
	if v <= 0 {
		errs.AddError("settings", field, "validation", fmt.Sprintf("must be positive, got %d", v))
	}
}

func validateNonNegative(errs *ConfigurationErrorCollection, field string, v int) {
	if v < 0 {
		errs.AddError("settings", field, "validation", fmt.Sprintf("must not be negative, got %d", v))
	}
}
