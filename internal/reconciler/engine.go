package reconciler

import (
	"context"
	"fmt"
	"time"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/match"
	"knowledgecore/pkg/logging"
)

// Store is everything a run needs from a fleet member.
type Store interface {
	SchemaReader
	SchemaWriter
}

// ProfileResolver names the profile a request targets, usually the fleet router.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, override string) identity.Name
}

// Engine runs fetch, plan and apply for one manifest and space. The engine does not
// serialize runs against the same space; callers that may overlap must do so.
type Engine struct {
	fetcher  *SnapshotFetcher
	executor *Executor
	metrics  *Metrics
	profiles ProfileResolver

	// Threshold is the similarity at which a declared name reuses an existing one.
	Threshold float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBatchDelay sets the pause between consecutive creations.
func WithBatchDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.executor.BatchDelay = d
	}
}

// WithThreshold sets the similarity threshold.
func WithThreshold(threshold float64) EngineOption {
	return func(e *Engine) {
		e.Threshold = threshold
	}
}

// WithMetrics records runs in m instead of the process-wide metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithProfileResolver resolves the target profile up front, so results and metrics
// carry the profile even when it comes from the caller's identity.
func WithProfileResolver(r ProfileResolver) EngineOption {
	return func(e *Engine) {
		e.profiles = r
	}
}

// NewEngine creates an engine over store, usually a *backend.Client.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:   NewSnapshotFetcher(store),
		executor:  NewExecutor(store),
		metrics:   GetMetrics(),
		Threshold: match.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metrics returns the metrics the engine records into.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// EnsureOntology makes req.SpaceID contain every relation and type of req.Manifest,
// reusing existing elements with similar names. The manifest is validated before any
// request is sent.
func (e *Engine) EnsureOntology(ctx context.Context, req Request) (*Result, error) {
	if req.Manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if req.SpaceID == "" {
		return nil, fmt.Errorf("space id is required")
	}
	if err := req.Manifest.Validate(); err != nil {
		return nil, err
	}

	if e.profiles != nil {
		req.Profile = string(e.profiles.ResolveProfile(ctx, req.Profile))
	}

	logging.Info("Reconciler", "Ensuring ontology %s in space %s on profile %s (dry run: %t)", req.Manifest.Name, req.SpaceID, req.Profile, req.DryRun)

	snapshot, err := e.fetcher.Fetch(ctx, req.SpaceID, req.Profile)
	if err != nil {
		e.metrics.RecordFailure(req.Profile, req.SpaceID, nil, err)
		return nil, err
	}

	plan, err := NewPlan(req.Manifest, req.SpaceID, snapshot, e.Threshold)
	if err != nil {
		e.metrics.RecordFailure(req.Profile, req.SpaceID, nil, err)
		return nil, err
	}
	plan.Profile = req.Profile
	for _, w := range plan.Warnings {
		logging.Warn("Reconciler", "Manifest %s: %s", req.Manifest.Name, w)
	}

	result, err := e.executor.Apply(ctx, plan, req.DryRun)
	if err != nil {
		e.metrics.RecordFailure(req.Profile, req.SpaceID, result, err)
		logging.Error("Reconciler", err, "Ontology %s not fully applied to space %s", req.Manifest.Name, req.SpaceID)
		return result, err
	}
	e.metrics.RecordResult(req.Profile, result)

	logging.Info("Reconciler", "Ontology %s ensured in space %s: %s", req.Manifest.Name, req.SpaceID, result.Message)
	return result, nil
}

var _ Store = (*backend.Client)(nil)
