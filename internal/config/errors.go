package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError describes one problem found while loading settings.
type ConfigurationError struct {
	Source      string   `json:"source"`    // "file", "env" or "settings"
	Field       string   `json:"field"`     // Dotted settings path or env var name
	ErrorType   string   `json:"errorType"` // parse, validation, io
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.Field == "" {
		return fmt.Sprintf("[%s] %s", ce.Source, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.Source, ce.Field, ce.Message)
}

// DetailedError returns a multi-line description including suggestions.
func (ce ConfigurationError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration error (%s)", ce.ErrorType),
		fmt.Sprintf("  Source: %s", ce.Source),
	}
	if ce.Field != "" {
		parts = append(parts, fmt.Sprintf("  Field: %s", ce.Field))
	}
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))
	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}
	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// AddError adds a basic error to the collection
func (cec *ConfigurationErrorCollection) AddError(source, field, errorType, message string) {
	cec.Add(ConfigurationError{
		Source:    source,
		Field:     field,
		ErrorType: errorType,
		Message:   message,
	})
}

// GetDetailedReport returns a detailed report of all errors
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Detailed Configuration Error Report (%d errors):", len(cec.Errors)))
	parts = append(parts, strings.Repeat("=", 60))

	for i, err := range cec.Errors {
		parts = append(parts, fmt.Sprintf("\nError %d:", i+1))
		parts = append(parts, err.DetailedError())
	}

	return strings.Join(parts, "\n")
}

// errOrNil returns the collection as an error only when it holds errors.
func (cec *ConfigurationErrorCollection) errOrNil() error {
	if cec.HasErrors() {
		return cec
	}
	return nil
}

// NewConfigurationErrorCollection creates a new empty error collection
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{
		Errors: make([]ConfigurationError, 0),
	}
}

// IsConfigurationError reports whether err carries configuration problems.
func IsConfigurationError(err error) bool {
	var collection *ConfigurationErrorCollection
	if errors.As(err, &collection) {
		return true
	}
	var single ConfigurationError
	return errors.As(err, &single)
}
