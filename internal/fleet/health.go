package fleet

import (
	"context"
	"strings"
	"sync"

	"knowledgecore/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	healthPath = "/v1/health"
)

// HealthStatus is the outcome of probing one fleet member.
type HealthStatus struct {
	Status   string                 `json:"status" yaml:"status"`
	Response map[string]interface{} `json:"response,omitempty" yaml:"response,omitempty"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Healthy reports whether the health request succeeded.
func (h HealthStatus) Healthy() bool {
	return h.Status == StatusHealthy
}

// HealthCheck checks override if given, otherwise every profile with a client,
// concurrently. Each profile's outcome is independent: a failing member is reported
// as unhealthy and never affects the others.
func (r *Router) HealthCheck(ctx context.Context, override string) map[string]HealthStatus {
	var profiles []string
	if override != "" {
		profiles = []string{strings.ToLower(strings.TrimSpace(override))}
	} else {
		for _, name := range r.Profiles() {
			profiles = append(profiles, string(name))
		}
	}

	var mu sync.Mutex
	results := make(map[string]HealthStatus, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range profiles {
		g.Go(func() error {
			status := r.checkHealth(gctx, name)
			mu.Lock()
			results[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Router) checkHealth(ctx context.Context, profile string) HealthStatus {
	resp, err := r.Get(ctx, healthPath, profile)
	if err != nil {
		logging.Warn("FleetRouter", "Health check failed for profile %s: %v", profile, err)
		return HealthStatus{Status: StatusUnhealthy, Error: err.Error()}
	}

	body := map[string]interface{}{}
	if err := resp.DecodeJSON(&body); err != nil {
		return HealthStatus{Status: StatusUnhealthy, Error: err.Error()}
	}
	return HealthStatus{Status: StatusHealthy, Response: body}
}
