// Package reconciler makes the schema of a space match a declarative ontology
// manifest.
//
// A run has three steps:
//
//   - SnapshotFetcher reads the existing relations and types of the space.
//   - NewPlan diffs the manifest against the snapshot. Declared names are matched
//     against existing ones with match.Similarity, so "status" reuses an existing
//     "Status" instead of creating a near-duplicate.
//   - Executor creates what is missing: relations first, then types linked to the
//     relation ids resolved from both matches and new creations.
//
// Engine.EnsureOntology chains the three. Runs are additive only; nothing is updated
// or deleted, and a failure part way leaves earlier creations in place and returns a
// *PartialApplicationError carrying the partial result.
//
// Engine.Watch keeps a space reconciled while a manifest file is edited. A
// ManifestWatcher debounces fsnotify events and a de-duplicating work queue makes
// sure a space is never reconciled twice at once.
//
// Example usage:
//
//	engine := reconciler.NewEngine(backend.NewClient(router),
//	    reconciler.WithProfileResolver(router),
//	)
//	result, err := engine.EnsureOntology(ctx, reconciler.Request{
//	    Manifest: manifest,
//	    SpaceID:  spaceID,
//	})
package reconciler
