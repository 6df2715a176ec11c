package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"knowledgecore/internal/fleet"
)

// Requester is the subset of the fleet router the client needs.
type Requester interface {
	Get(ctx context.Context, path, override string, opts ...fleet.RequestOption) (*fleet.Response, error)
	Post(ctx context.Context, path, override string, opts ...fleet.RequestOption) (*fleet.Response, error)
}

// Client calls the backend API of whichever fleet member a request resolves to.
// Every method takes an optional profile override; empty means "the identity in
// ctx".
type Client struct {
	requester Requester
}

// NewClient creates a client dispatching through requester.
func NewClient(requester Requester) *Client {
	return &Client{requester: requester}
}

func spacePath(spaceID, collection string) string {
	return fmt.Sprintf("/v1/spaces/%s/%s", url.PathEscape(spaceID), collection)
}

// Health fetches the fleet member's health document.
func (c *Client) Health(ctx context.Context, profile string) (*Health, error) {
	resp, err := c.requester.Get(ctx, "/v1/health", profile)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := resp.DecodeJSON(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListSpaces lists every space.
func (c *Client) ListSpaces(ctx context.Context, profile string) ([]Space, error) {
	resp, err := c.requester.Get(ctx, "/v1/spaces", profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	var body struct {
		Spaces []Space `json:"spaces"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, err
	}
	return body.Spaces, nil
}

// CreateSpace creates a space.
func (c *Client) CreateSpace(ctx context.Context, profile string, req CreateSpaceRequest) (*Space, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("space name is required")
	}
	resp, err := c.requester.Post(ctx, "/v1/spaces", profile, fleet.WithJSONBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create space %q: %w", req.Name, err)
	}
	space := Space{Name: req.Name, Icon: req.Icon}
	if err := resp.DecodeJSON(&space); err != nil {
		return nil, err
	}
	return &space, nil
}

// ListRelations lists the relations of a space in backend order.
func (c *Client) ListRelations(ctx context.Context, profile, spaceID string) ([]Relation, error) {
	resp, err := c.requester.Get(ctx, spacePath(spaceID, "relations"), profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations of space %s: %w", spaceID, err)
	}
	var body struct {
		Relations []Relation `json:"relations"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, err
	}
	return body.Relations, nil
}

// CreateRelation creates a relation and returns it with its assigned id.
func (c *Client) CreateRelation(ctx context.Context, profile, spaceID string, req CreateRelationRequest) (*Relation, error) {
	resp, err := c.requester.Post(ctx, spacePath(spaceID, "relations"), profile, fleet.WithJSONBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create relation %q in space %s: %w", req.Name, spaceID, err)
	}
	rel := Relation{SpaceID: spaceID, Key: req.Key, Name: req.Name, Format: req.Format}
	if err := resp.DecodeJSON(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// ListTypes lists the object types of a space in backend order.
func (c *Client) ListTypes(ctx context.Context, profile, spaceID string) ([]ObjectType, error) {
	resp, err := c.requester.Get(ctx, spacePath(spaceID, "types"), profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list types of space %s: %w", spaceID, err)
	}
	var body struct {
		Types []ObjectType `json:"types"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, err
	}
	return body.Types, nil
}

// CreateType creates an object type and returns it with its assigned id.
func (c *Client) CreateType(ctx context.Context, profile, spaceID string, req CreateTypeRequest) (*ObjectType, error) {
	if req.RecommendedRelations == nil {
		req.RecommendedRelations = []string{}
	}
	resp, err := c.requester.Post(ctx, spacePath(spaceID, "types"), profile, fleet.WithJSONBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create type %q in space %s: %w", req.Name, spaceID, err)
	}
	typ := ObjectType{SpaceID: spaceID, Key: req.Key, Name: req.Name, Layout: req.Layout}
	if err := resp.DecodeJSON(&typ); err != nil {
		return nil, err
	}
	return &typ, nil
}

// ListObjects lists the objects of a space.
func (c *Client) ListObjects(ctx context.Context, profile, spaceID string) ([]Object, error) {
	resp, err := c.requester.Get(ctx, spacePath(spaceID, "objects"), profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects of space %s: %w", spaceID, err)
	}
	var body struct {
		Objects []Object `json:"objects"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, err
	}
	return body.Objects, nil
}

// CreateObject creates an object in a space.
func (c *Client) CreateObject(ctx context.Context, profile, spaceID string, req CreateObjectRequest) (*Object, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	if req.Details == nil {
		req.Details = map[string]interface{}{}
	}
	resp, err := c.requester.Post(ctx, spacePath(spaceID, "objects"), profile, fleet.WithJSONBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create object %q in space %s: %w", req.Name, spaceID, err)
	}
	obj := Object{SpaceID: spaceID, TypeID: req.TypeID, Name: req.Name, Icon: req.Icon, Details: req.Details}
	if err := resp.DecodeJSON(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// Search runs a global search. Limit defaults to 20 and must be between 1 and 100.
func (c *Client) Search(ctx context.Context, profile string, q SearchQuery) (*SearchResult, error) {
	if strings.TrimSpace(q.Query) == "" && q.ModifiedAfter.IsZero() {
		return nil, fmt.Errorf("search query is required")
	}
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		return nil, fmt.Errorf("search limit must be between 1 and %d, got %d", MaxSearchLimit, q.Limit)
	}

	resp, err := c.requester.Get(ctx, "/v1/search", profile,
		fleet.WithQuery("query", q.Query),
		fleet.WithQuery("limit", strconv.Itoa(q.Limit)),
		fleet.WithQuery("spaceId", q.SpaceID),
		fleet.WithQuery("typeId", q.TypeID),
		fleet.WithQuery("modifiedAfter", formatTime(q.ModifiedAfter)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	total := -1
	result := SearchResult{Total: total}
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, err
	}
	if result.Total == total {
		result.Total = len(result.Objects)
	}
	return &result, nil
}

// Stats fetches aggregate graph statistics.
func (c *Client) Stats(ctx context.Context, profile string) (*GraphStats, error) {
	resp, err := c.requester.Get(ctx, "/v1/stats", profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph stats: %w", err)
	}
	var stats GraphStats
	if err := resp.DecodeJSON(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
