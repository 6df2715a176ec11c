package backendtest

import (
	"context"
	"testing"

	"knowledgecore/internal/config"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
)

// Settings returns default settings whose fleet points at the given servers, tuned
// for fast tests.
func Settings(servers map[identity.Name]*Server) config.Settings {
	settings := config.DefaultSettings()
	settings.Fleet = make(map[string]config.ProfileConfig, len(servers))
	for name, srv := range servers {
		settings.Fleet[string(name)] = config.ProfileConfig{URL: srv.URL}
	}
	settings.Backend.TimeoutMs = 5000
	settings.Backend.ConnectTimeoutMs = 1000
	settings.Backend.RetryDelayMs = 1
	settings.Backend.BatchDelayMs = 0
	return settings
}

// NewRouter returns an initialized router for servers, closed when the test ends.
// The default profile is personal.
func NewRouter(t testing.TB, servers map[identity.Name]*Server) (*fleet.Router, *identity.Resolver) {
	t.Helper()

	resolver, err := identity.NewResolver(string(identity.Personal))
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	router := fleet.New(Settings(servers), resolver)
	if err := router.Init(context.Background()); err != nil {
		t.Fatalf("router init: %v", err)
	}
	t.Cleanup(router.Close)
	return router, resolver
}
