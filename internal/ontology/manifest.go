package ontology

import "strings"

const (
	// DefaultVersion is assigned to manifests that declare no version.
	DefaultVersion = "1.0.0"

	maxNameLength        = 100
	maxDescriptionLength = 500
)

// SelectOption is one choice of a select-like relation.
type SelectOption struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// RelationDefinition declares a relation that should exist in a space.
type RelationDefinition struct {
	Name          string         `json:"name"`
	Key           string         `json:"key,omitempty"`
	Format        Format         `json:"format,omitempty"`
	Description   string         `json:"description,omitempty"`
	MaxCount      int            `json:"maxCount,omitempty"`
	ObjectTypes   []string       `json:"objectTypes,omitempty"`
	SelectOptions []SelectOption `json:"selectOptions,omitempty"`
}

// TypeDefinition declares an object type that should exist in a space. Relations are
// referenced by declared name, since identifiers only exist once a run resolves them.
type TypeDefinition struct {
	Name        string   `json:"name"`
	Key         string   `json:"key,omitempty"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Layout      Layout   `json:"layout,omitempty"`
	Relations   []string `json:"relations,omitempty"`
}

// Manifest is a declarative list of desired relations and types.
type Manifest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Version     string               `json:"version,omitempty"`
	Relations   []RelationDefinition `json:"relations,omitempty"`
	Types       []TypeDefinition     `json:"types,omitempty"`
}

// DeriveKey turns a display name into a machine key: lowercase, with spaces and
// hyphens replaced by underscores.
func DeriveKey(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
}

// ApplyDefaults fills in omitted formats, layouts, keys and the version.
func (m *Manifest) ApplyDefaults() {
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	for i := range m.Relations {
		r := &m.Relations[i]
		if r.Format == "" {
			r.Format = FormatShortText
		}
		if r.Key == "" {
			r.Key = DeriveKey(r.Name)
		}
	}
	for i := range m.Types {
		t := &m.Types[i]
		if t.Layout == "" {
			t.Layout = LayoutBasic
		}
		if t.Key == "" {
			t.Key = DeriveKey(t.Name)
		}
	}
}
