package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Name identifies one of the statically configured fleet profiles.
type Name string

const (
	// Personal is the personal knowledge store.
	Personal Name = "personal"
	// Work is the work knowledge store.
	Work Name = "work"
	// Research is the research knowledge store.
	Research Name = "research"
)

// names is the fixed profile set, in display order.
var names = []Name{Personal, Work, Research}

// Names returns the fixed set of valid profile names.
func Names() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// String returns the profile name.
func (n Name) String() string {
	return string(n)
}

// InvalidProfileError is returned when a profile name is outside the fixed set.
type InvalidProfileError struct {
	Name string
}

// Error implements the error interface.
func (e *InvalidProfileError) Error() string {
	valid := make([]string, len(names))
	for i, n := range names {
		valid[i] = string(n)
	}
	return fmt.Sprintf("invalid profile: %q (must be one of %s)", e.Name, strings.Join(valid, ", "))
}

// IsInvalidProfile reports whether err is or wraps an InvalidProfileError.
func IsInvalidProfile(err error) bool {
	var target *InvalidProfileError
	return errors.As(err, &target)
}

// ParseName validates a profile name case-insensitively and returns its canonical form.
func ParseName(s string) (Name, error) {
	candidate := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range names {
		if n == candidate {
			return n, nil
		}
	}
	return "", &InvalidProfileError{Name: s}
}

// Identity is the routing context of one unit of work.
type Identity struct {
	// Profile selects the fleet member that receives requests.
	Profile Name `json:"profile"`
	// SessionID optionally ties the identity to a caller session.
	SessionID string `json:"sessionId,omitempty"`
}

type contextKey struct{}

// contextValue distinguishes "explicitly reset" from "never set"; both resolve to the default.
type contextValue struct {
	identity Identity
	set      bool
}

// WithIdentity returns a child context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, contextValue{identity: id, set: true})
}

// FromContext returns the identity carried by ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(contextKey{}).(contextValue)
	if !ok || !v.set {
		return Identity{}, false
	}
	return v.identity, true
}

// Resolver resolves the active identity of a unit of work, falling back to the
// configured default profile. It holds no per-request state.
type Resolver struct {
	defaultProfile Name
}

// NewResolver creates a resolver using defaultProfile when a context carries no identity.
func NewResolver(defaultProfile string) (*Resolver, error) {
	name, err := ParseName(defaultProfile)
	if err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}
	return &Resolver{defaultProfile: name}, nil
}

// Default returns the configured default profile.
func (r *Resolver) Default() Name {
	return r.defaultProfile
}

// Get returns the identity active in ctx, or the default profile if none was set.
func (r *Resolver) Get(ctx context.Context) Identity {
	if id, ok := FromContext(ctx); ok {
		return id
	}
	return Identity{Profile: r.defaultProfile}
}

// Set validates profileName and returns a context carrying the new identity.
// The caller's context is left untouched, so concurrent units of work never observe
// each other's selection.
func (r *Resolver) Set(ctx context.Context, profileName, sessionID string) (context.Context, Identity, error) {
	name, err := ParseName(profileName)
	if err != nil {
		return ctx, Identity{}, err
	}
	id := Identity{Profile: name, SessionID: sessionID}
	return WithIdentity(ctx, id), id, nil
}

// Reset returns a context in which Get resolves to the default profile again.
func (r *Resolver) Reset(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, contextValue{})
}
