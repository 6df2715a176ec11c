package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/ontology"
	"knowledgecore/pkg/logging"
)

// DefaultBatchDelay is the pause between consecutive creations.
const DefaultBatchDelay = 50 * time.Millisecond

// Phase names the part of a run that was executing.
type Phase string

const (
	PhaseRelations Phase = "relations"
	PhaseTypes     Phase = "types"
)

// SchemaWriter creates schema elements in a space.
type SchemaWriter interface {
	CreateRelation(ctx context.Context, profile, spaceID string, req backend.CreateRelationRequest) (*backend.Relation, error)
	CreateType(ctx context.Context, profile, spaceID string, req backend.CreateTypeRequest) (*backend.ObjectType, error)
}

// PartialApplicationError reports a run that stopped part way. Result lists what was
// created before the failure; nothing is rolled back.
type PartialApplicationError struct {
	Phase   Phase
	Element string
	Result  *Result
	Err     error
}

func (e *PartialApplicationError) Error() string {
	return fmt.Sprintf("ontology partially applied: failed to create %s %q after %d relations and %d types: %v",
		singular(e.Phase), e.Element, len(e.Result.CreatedRelations), len(e.Result.CreatedTypes), e.Err)
}

func (e *PartialApplicationError) Unwrap() error {
	return e.Err
}

// IsPartialApplication checks if an error is a PartialApplicationError.
func IsPartialApplication(err error) bool {
	var pe *PartialApplicationError
	return errors.As(err, &pe)
}

func singular(p Phase) string {
	if p == PhaseTypes {
		return "type"
	}
	return "relation"
}

// Executor applies plans. Relations are created before types since types reference
// relation ids.
type Executor struct {
	writer SchemaWriter

	// BatchDelay is the pause between consecutive creations.
	BatchDelay time.Duration
}

// NewExecutor creates an executor writing through writer.
func NewExecutor(writer SchemaWriter) *Executor {
	return &Executor{writer: writer, BatchDelay: DefaultBatchDelay}
}

// Apply executes plan. A dry run reports the plan without any request.
func (e *Executor) Apply(ctx context.Context, plan *Plan, dryRun bool) (*Result, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}
	if plan.State.Terminal() {
		return nil, fmt.Errorf("plan for space %s was already executed (state %s)", plan.SpaceID, plan.State)
	}

	result := &Result{
		SpaceID:          plan.SpaceID,
		Profile:          plan.Profile,
		CreatedRelations: []string{},
		CreatedTypes:     []string{},
		SkippedRelations: append([]string{}, plan.Diff.ExistingRelations...),
		SkippedTypes:     append([]string{}, plan.Diff.ExistingTypes...),
		Diff:             plan.Diff,
		DryRun:           dryRun,
		Warnings:         append([]string(nil), plan.Warnings...),
	}
	if plan.Manifest != nil {
		result.Manifest = plan.Manifest.Name
	}

	if dryRun {
		result.Message = fmt.Sprintf("Dry run: Would create %d relations and %d types",
			len(plan.RelationsToCreate), len(plan.TypesToCreate))
		result.State = StateDryRunReported
		plan.State = StateDryRunReported
		return result, nil
	}

	ids := make(map[string]string, len(plan.MatchedRelationIDs)+len(plan.RelationsToCreate))
	for k, v := range plan.MatchedRelationIDs {
		ids[k] = v
	}

	abort := func(phase Phase, element string, err error) (*Result, error) {
		result.State = StateAborted
		plan.State = StateAborted
		result.Message = fmt.Sprintf("Aborted after creating %d relations and %d types",
			len(result.CreatedRelations), len(result.CreatedTypes))
		return result, &PartialApplicationError{Phase: phase, Element: element, Result: result, Err: err}
	}

	created := 0
	for _, rel := range plan.RelationsToCreate {
		if err := e.pause(ctx, created); err != nil {
			return abort(PhaseRelations, rel.Name, err)
		}
		logging.Info("Reconciler", "Creating relation %s in space %s", rel.Name, plan.SpaceID)
		out, err := e.writer.CreateRelation(ctx, plan.Profile, plan.SpaceID, relationRequest(rel))
		if err != nil {
			return abort(PhaseRelations, rel.Name, err)
		}
		created++
		result.CreatedRelations = append(result.CreatedRelations, rel.Name)
		if out == nil || out.ID == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("relation %q was created without an id and cannot be linked to types", rel.Name))
			continue
		}
		ids[fold(rel.Name)] = out.ID
	}

	for _, typ := range plan.TypesToCreate {
		if err := e.pause(ctx, created); err != nil {
			return abort(PhaseTypes, typ.Name, err)
		}
		relationIDs := resolveRelations(typ, ids, result)
		logging.Info("Reconciler", "Creating type %s in space %s with %d relations", typ.Name, plan.SpaceID, len(relationIDs))
		if _, err := e.writer.CreateType(ctx, plan.Profile, plan.SpaceID, typeRequest(typ, relationIDs)); err != nil {
			return abort(PhaseTypes, typ.Name, err)
		}
		created++
		result.CreatedTypes = append(result.CreatedTypes, typ.Name)
	}

	result.Message = fmt.Sprintf("Created %d relations and %d types", len(result.CreatedRelations), len(result.CreatedTypes))
	result.State = StateApplied
	plan.State = StateApplied
	return result, nil
}

// pause waits BatchDelay before every creation but the first.
func (e *Executor) pause(ctx context.Context, created int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if created == 0 || e.BatchDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.BatchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resolveRelations maps the relation names of typ to ids in declaration order,
// dropping repeats. Unknown names are dropped with a warning.
func resolveRelations(typ ontology.TypeDefinition, ids map[string]string, result *Result) []string {
	out := make([]string, 0, len(typ.Relations))
	seen := make(map[string]bool, len(typ.Relations))
	for _, name := range typ.Relations {
		id, ok := ids[fold(name)]
		if !ok || id == "" {
			logging.Warn("Reconciler", "Relation %s not found for type %s", name, typ.Name)
			result.Warnings = append(result.Warnings, fmt.Sprintf("type %q references unknown relation %q", typ.Name, name))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func relationRequest(rel ontology.RelationDefinition) backend.CreateRelationRequest {
	req := backend.CreateRelationRequest{
		Name:        rel.Name,
		Key:         rel.Key,
		Format:      string(rel.Format),
		Description: rel.Description,
		MaxCount:    rel.MaxCount,
	}
	for _, opt := range rel.SelectOptions {
		req.SelectOptions = append(req.SelectOptions, backend.SelectOption{Name: opt.Name, Color: opt.Color})
	}
	return req
}

func typeRequest(typ ontology.TypeDefinition, relationIDs []string) backend.CreateTypeRequest {
	return backend.CreateTypeRequest{
		Name:                 typ.Name,
		Key:                  typ.Key,
		Layout:               string(typ.Layout),
		Description:          typ.Description,
		Icon:                 typ.Icon,
		RecommendedRelations: relationIDs,
	}
}
