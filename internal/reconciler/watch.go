package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knowledgecore/internal/fleet"
	"knowledgecore/internal/ontology"
	"knowledgecore/pkg/logging"
)

// WatchOptions configures Engine.Watch.
type WatchOptions struct {
	ManifestPath string
	SpaceID      string
	Profile      string
	DryRun       bool

	// Debounce is passed to the ManifestWatcher.
	Debounce time.Duration
	// RetryDelay is the wait before the first retry of a failed run; it doubles on
	// each further attempt.
	RetryDelay time.Duration
	// MaxAttempts bounds retries of a failed run. Zero means a single attempt.
	MaxAttempts int

	// OnResult is called after every run.
	OnResult func(*Result, error)
}

// Watch reconciles the manifest once, then again whenever the file changes, until ctx
// is done. Runs for the space are serialized; changes arriving during a run cause one
// more run after it.
func (e *Engine) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.SpaceID == "" {
		return fmt.Errorf("space id is required")
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	watcher, err := NewManifestWatcher(opts.ManifestPath, opts.Debounce)
	if err != nil {
		return err
	}

	queue := NewDelayedQueue()
	defer queue.Shutdown()

	changes := make(chan ChangeEvent, 1)
	if err := watcher.Start(ctx, changes); err != nil {
		return err
	}
	defer watcher.Stop()

	base := ReconcileRequest{
		Profile:      opts.Profile,
		SpaceID:      opts.SpaceID,
		ManifestPath: watcher.Path(),
		DryRun:       opts.DryRun,
		Attempt:      1,
	}
	queue.Add(base)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-changes:
				if ev.Operation == OperationDelete {
					logging.Warn("Reconciler", "Manifest %s was removed, waiting for it to reappear", ev.FilePath)
					continue
				}
				logging.Info("Reconciler", "Manifest %s changed (%s), reconciling space %s", ev.FilePath, ev.Operation, opts.SpaceID)
				queue.Add(base)
			}
		}
	}()

	for {
		req, ok := queue.Get(ctx)
		if !ok {
			return nil
		}
		result, err := e.runRequest(ctx, req)
		if opts.OnResult != nil {
			opts.OnResult(result, err)
		}
		if err != nil && ctx.Err() == nil && retryable(err) && req.Attempt < opts.MaxAttempts {
			delay := opts.RetryDelay << (req.Attempt - 1)
			logging.Warn("Reconciler", "Run %d for space %s failed, retrying in %s: %v", req.Attempt, req.SpaceID, delay, err)
			next := req
			next.Attempt++
			queue.AddAfter(next, delay)
		}
		queue.Done(req)
	}
}

// runRequest loads the manifest and runs the engine for a queued request.
func (e *Engine) runRequest(ctx context.Context, req ReconcileRequest) (*Result, error) {
	manifest, err := ontology.Load(req.ManifestPath)
	if err != nil {
		logging.Error("Reconciler", err, "Failed to load manifest %s", req.ManifestPath)
		return nil, err
	}
	return e.EnsureOntology(ctx, Request{
		Manifest: manifest,
		SpaceID:  req.SpaceID,
		DryRun:   req.DryRun,
		Profile:  req.Profile,
	})
}

// retryable reports whether another attempt may succeed without a manifest change:
// the fleet member was unreachable or answered with a server error.
func retryable(err error) bool {
	if fleet.IsRemoteUnavailable(err) {
		return true
	}
	var remoteErr *fleet.RemoteError
	return errors.As(err, &remoteErr) && remoteErr.StatusCode >= 500
}
