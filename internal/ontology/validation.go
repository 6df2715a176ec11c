package ontology

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a single structural problem in a manifest.
type FieldError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (fe FieldError) Error() string {
	if fe.Field == "" {
		return fe.Message
	}
	return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
}

// ValidationError lists every problem found in a manifest. A manifest that fails
// validation is rejected before any request is made.
type ValidationError struct {
	Manifest string
	Problems []FieldError
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	var messages []string
	for _, p := range ve.Problems {
		messages = append(messages, p.Error())
	}
	name := ve.Manifest
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("invalid manifest %s: %s", name, strings.Join(messages, "; "))
}

func (ve *ValidationError) add(field, message string, value interface{}) {
	ve.Problems = append(ve.Problems, FieldError{Field: field, Value: value, Message: message})
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Validate checks the manifest's structure and returns a *ValidationError listing
// every problem, or nil.
func (m *Manifest) Validate() error {
	ve := &ValidationError{Manifest: m.Name}

	if strings.TrimSpace(m.Name) == "" {
		ve.add("name", "is required", m.Name)
	}

	for i, r := range m.Relations {
		field := fmt.Sprintf("relations[%d]", i)
		validateName(ve, field, r.Name)
		validateDescription(ve, field, r.Description)
		if r.Format != "" && !r.Format.Valid() {
			ve.add(field+".format", fmt.Sprintf("unknown format %q (valid: %s)", r.Format, joinFormats(Formats())), r.Format)
		} else if len(r.SelectOptions) > 0 && !r.Format.HasOptions() {
			ve.add(field+".selectOptions", fmt.Sprintf("not supported by format %q", r.Format), len(r.SelectOptions))
		}
		if r.MaxCount < 0 {
			ve.add(field+".maxCount", "must not be negative", r.MaxCount)
		}
		for j, opt := range r.SelectOptions {
			if strings.TrimSpace(opt.Name) == "" {
				ve.add(fmt.Sprintf("%s.selectOptions[%d].name", field, j), "is required", opt.Name)
			}
		}
	}

	for i, t := range m.Types {
		field := fmt.Sprintf("types[%d]", i)
		validateName(ve, field, t.Name)
		validateDescription(ve, field, t.Description)
		if t.Layout != "" && !t.Layout.Valid() {
			ve.add(field+".layout", fmt.Sprintf("unknown layout %q (valid: %s)", t.Layout, joinLayouts(Layouts())), t.Layout)
		}
		for j, ref := range t.Relations {
			if strings.TrimSpace(ref) == "" {
				ve.add(fmt.Sprintf("%s.relations[%d]", field, j), "relation reference must not be empty", ref)
			}
		}
	}

	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

func validateName(ve *ValidationError, field, name string) {
	switch {
	case strings.TrimSpace(name) == "":
		ve.add(field+".name", "is required", name)
	case len([]rune(name)) > maxNameLength:
		ve.add(field+".name", fmt.Sprintf("must not exceed %d characters", maxNameLength), name)
	}
}

func validateDescription(ve *ValidationError, field, description string) {
	if len([]rune(description)) > maxDescriptionLength {
		ve.add(field+".description", fmt.Sprintf("must not exceed %d characters", maxDescriptionLength), len(description))
	}
}

func joinFormats(formats []Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func joinLayouts(layouts []Layout) string {
	names := make([]string, len(layouts))
	for i, l := range layouts {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
