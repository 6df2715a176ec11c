package reconciler

import (
	"context"
	"fmt"
	"time"

	"knowledgecore/internal/backend"

	"golang.org/x/sync/singleflight"
)

// SchemaReader lists the schema of a space.
type SchemaReader interface {
	ListRelations(ctx context.Context, profile, spaceID string) ([]backend.Relation, error)
	ListTypes(ctx context.Context, profile, spaceID string) ([]backend.ObjectType, error)
}

// SnapshotFetcher reads the live schema of a space. Concurrent fetches of the same
// space on the same named profile share one pair of requests. Fetches that leave
// the profile to the caller's identity are never shared.
type SnapshotFetcher struct {
	reader SchemaReader
	group  singleflight.Group
}

// NewSnapshotFetcher creates a fetcher reading through reader.
func NewSnapshotFetcher(reader SchemaReader) *SnapshotFetcher {
	return &SnapshotFetcher{reader: reader}
}

// Fetch lists relations and then types of spaceID. An empty profile means the
// identity carried by ctx.
func (f *SnapshotFetcher) Fetch(ctx context.Context, spaceID, profile string) (*Snapshot, error) {
	if profile == "" {
		return f.fetch(ctx, spaceID, profile)
	}

	v, err, shared := f.group.Do(profile+"/"+spaceID, func() (interface{}, error) {
		return f.fetch(ctx, spaceID, profile)
	})
	if err != nil {
		return nil, err
	}

	snapshot := v.(*Snapshot)
	if shared {
		// Callers own their snapshot.
		cp := *snapshot
		cp.Relations = append([]backend.Relation(nil), snapshot.Relations...)
		cp.Types = append([]backend.ObjectType(nil), snapshot.Types...)
		return &cp, nil
	}
	return snapshot, nil
}

func (f *SnapshotFetcher) fetch(ctx context.Context, spaceID, profile string) (*Snapshot, error) {
	relations, err := f.reader.ListRelations(ctx, profile, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch relations of space %s: %w", spaceID, err)
	}
	types, err := f.reader.ListTypes(ctx, profile, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch types of space %s: %w", spaceID, err)
	}
	return &Snapshot{Relations: relations, Types: types, FetchedAt: time.Now()}, nil
}
