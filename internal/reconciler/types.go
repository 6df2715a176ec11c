package reconciler

import (
	"context"
	"time"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/ontology"
)

// RunState tracks a reconciliation run.
//
//	Unplanned -> Diffed -> DryRunReported
//	                    -> Applied
//	                    -> Aborted
type RunState string

const (
	// StateUnplanned is a run that has not diffed anything yet.
	StateUnplanned RunState = "Unplanned"
	// StateDiffed is a run whose plan is computed but not applied.
	StateDiffed RunState = "Diffed"
	// StateDryRunReported is a dry run that reported its plan without mutating.
	StateDryRunReported RunState = "DryRunReported"
	// StateApplied is a run whose every creation completed.
	StateApplied RunState = "Applied"
	// StateAborted is a run stopped by a failed creation, leaving prior creations in place.
	StateAborted RunState = "Aborted"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == StateDryRunReported || s == StateApplied || s == StateAborted
}

// Snapshot is the live schema of a space, in backend order.
type Snapshot struct {
	Relations []backend.Relation   `json:"relations"`
	Types     []backend.ObjectType `json:"types"`
	FetchedAt time.Time            `json:"fetchedAt"`
}

// Diff classifies every declared element as missing or already existing.
type Diff struct {
	MissingRelations  []string `json:"missing_relations"`
	MissingTypes      []string `json:"missing_types"`
	ExistingRelations []string `json:"existing_relations"`
	ExistingTypes     []string `json:"existing_types"`
}

// Empty reports whether nothing needs creating.
func (d Diff) Empty() bool {
	return len(d.MissingRelations) == 0 && len(d.MissingTypes) == 0
}

// Plan is the side-effect free outcome of diffing a manifest against a snapshot.
type Plan struct {
	Manifest *ontology.Manifest
	SpaceID  string
	Profile  string
	Diff     Diff

	RelationsToCreate []ontology.RelationDefinition
	TypesToCreate     []ontology.TypeDefinition

	// MatchedRelationIDs maps a case-folded declared relation name to the id of the
	// existing relation it matched.
	MatchedRelationIDs map[string]string
	// MatchedTypeIDs maps a case-folded declared type name to the id of the existing
	// type it matched.
	MatchedTypeIDs map[string]string

	// Warnings are non-fatal findings such as repeated declarations.
	Warnings []string
	State    RunState
}

// Result reports what a run created and skipped.
type Result struct {
	Manifest         string   `json:"manifest"`
	SpaceID          string   `json:"space_id"`
	Profile          string   `json:"profile"`
	CreatedRelations []string `json:"created_relations"`
	CreatedTypes     []string `json:"created_types"`
	SkippedRelations []string `json:"skipped_relations"`
	SkippedTypes     []string `json:"skipped_types"`
	Diff             Diff     `json:"diff"`
	DryRun           bool     `json:"dry_run"`
	Message          string   `json:"message"`
	Warnings         []string `json:"warnings,omitempty"`
	State            RunState `json:"state"`
}

// Request asks the engine to make a space match a manifest.
type Request struct {
	Manifest *ontology.Manifest
	SpaceID  string
	DryRun   bool
	// Profile optionally overrides the identity carried by the context.
	Profile string
}

// ChangeOperation represents the type of change detected.
type ChangeOperation string

const (
	// OperationCreate indicates the manifest file appeared.
	OperationCreate ChangeOperation = "Create"

	// OperationUpdate indicates the manifest file was modified.
	OperationUpdate ChangeOperation = "Update"

	// OperationDelete indicates the manifest file was removed or renamed away.
	OperationDelete ChangeOperation = "Delete"
)

// ChangeEvent represents a detected change of a watched manifest file.
type ChangeEvent struct {
	// FilePath is the manifest file that changed.
	FilePath string

	// Operation describes what kind of change occurred.
	Operation ChangeOperation

	// Timestamp is when the change was detected.
	Timestamp time.Time
}

// ReconcileRequest is a queued reconciliation of one space.
type ReconcileRequest struct {
	// Profile is the fleet member holding the space.
	Profile string

	// SpaceID is the target space.
	SpaceID string

	// ManifestPath is the manifest to reconcile against.
	ManifestPath string

	// DryRun only reports the plan.
	DryRun bool

	// Attempt is the current attempt number (starts at 1).
	Attempt int
}

// ReconcileQueue represents a queue of spaces awaiting reconciliation.
type ReconcileQueue interface {
	// Add adds a request to the queue.
	// If the same space is already queued, the existing entry is updated.
	Add(req ReconcileRequest)

	// Get retrieves the next request from the queue.
	// Blocks until a request is available or the context is cancelled.
	Get(ctx context.Context) (ReconcileRequest, bool)

	// Done marks a request as processed.
	Done(req ReconcileRequest)

	// Len returns the current queue length.
	Len() int

	// Shutdown signals the queue to stop accepting new items.
	Shutdown()
}
