package config

import (
	"log/slog"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Secret wraps a credential (a backend mnemonic or token) so it cannot leak through
// fmt, JSON, YAML, or slog output.
//
//	s := config.NewSecret("abandon ability able ...")
//	fmt.Println(s)     // prints: [REDACTED]
//	s.Value()          // returns the actual credential
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Value returns the actual credential. Only use it to authenticate a request.
func (s Secret) Value() string {
	return s.value
}

// IsEmpty reports whether no credential is configured.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string {
	return "config.Secret{" + redacted + "}"
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Secret) MarshalYAML() (interface{}, error) {
	return redacted, nil
}

// UnmarshalYAML reads the credential from a plain YAML scalar.
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var v string
	if err := node.Decode(&v); err != nil {
		return err
	}
	s.value = v
	return nil
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
