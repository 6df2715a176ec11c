package reconciler

import (
	"fmt"
	"strings"

	"knowledgecore/internal/match"
	"knowledgecore/internal/ontology"
)

// fold is the case-insensitive key used for declared names.
func fold(name string) string {
	return strings.ToLower(name)
}

// NewPlan diffs manifest against snapshot without side effects. Each declared
// relation and type is matched against the existing names of its kind, in backend
// order, and the first existing element whose similarity reaches threshold wins.
//
// A name declared twice (ignoring case) is planned once; the repeat is reported as a
// plan warning.
func NewPlan(manifest *ontology.Manifest, spaceID string, snapshot *Snapshot, threshold float64) (*Plan, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if spaceID == "" {
		return nil, fmt.Errorf("space id is required")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = &Snapshot{}
	}

	plan := &Plan{
		Manifest:           manifest,
		SpaceID:            spaceID,
		MatchedRelationIDs: make(map[string]string),
		MatchedTypeIDs:     make(map[string]string),
		Diff: Diff{
			MissingRelations:  []string{},
			MissingTypes:      []string{},
			ExistingRelations: []string{},
			ExistingTypes:     []string{},
		},
		State: StateUnplanned,
	}

	relationNames := make([]string, len(snapshot.Relations))
	for i, r := range snapshot.Relations {
		relationNames[i] = r.Name
	}
	seen := make(map[string]bool)
	for _, rel := range manifest.Relations {
		key := fold(rel.Name)
		if seen[key] {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("relation %q is declared more than once, later declarations are ignored", rel.Name))
			continue
		}
		seen[key] = true

		if idx := match.First(rel.Name, relationNames, threshold); idx >= 0 {
			plan.Diff.ExistingRelations = append(plan.Diff.ExistingRelations, rel.Name)
			plan.MatchedRelationIDs[key] = snapshot.Relations[idx].ID
			continue
		}
		plan.Diff.MissingRelations = append(plan.Diff.MissingRelations, rel.Name)
		plan.RelationsToCreate = append(plan.RelationsToCreate, rel)
	}

	typeNames := make([]string, len(snapshot.Types))
	for i, t := range snapshot.Types {
		typeNames[i] = t.Name
	}
	seen = make(map[string]bool)
	for _, typ := range manifest.Types {
		key := fold(typ.Name)
		if seen[key] {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("type %q is declared more than once, later declarations are ignored", typ.Name))
			continue
		}
		seen[key] = true

		if idx := match.First(typ.Name, typeNames, threshold); idx >= 0 {
			plan.Diff.ExistingTypes = append(plan.Diff.ExistingTypes, typ.Name)
			plan.MatchedTypeIDs[key] = snapshot.Types[idx].ID
			continue
		}
		plan.Diff.MissingTypes = append(plan.Diff.MissingTypes, typ.Name)
		plan.TypesToCreate = append(plan.TypesToCreate, typ)
	}

	plan.State = StateDiffed
	return plan, nil
}
