package backend

import "time"

// Health is the body of GET /v1/health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Space is a top-level container of objects, types and relations.
type Space struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon,omitempty"`
	IsPersonal bool       `json:"isPersonal"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

// SelectOption is one choice of a select-like relation.
type SelectOption struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Relation is a field definition usable by object types.
type Relation struct {
	ID            string         `json:"id"`
	SpaceID       string         `json:"spaceId,omitempty"`
	Key           string         `json:"key"`
	Name          string         `json:"name"`
	Format        string         `json:"format"`
	Description   string         `json:"description,omitempty"`
	MaxCount      int            `json:"maxCount"`
	ObjectTypes   []string       `json:"objectTypes,omitempty"`
	SelectOptions []SelectOption `json:"selectOptions,omitempty"`
	IsHidden      bool           `json:"isHidden,omitempty"`
	IsReadOnly    bool           `json:"isReadOnly,omitempty"`
}

// ObjectType is a schema definition for objects.
type ObjectType struct {
	ID                   string   `json:"id"`
	SpaceID              string   `json:"spaceId,omitempty"`
	Key                  string   `json:"key"`
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	Icon                 string   `json:"icon,omitempty"`
	Layout               string   `json:"layout"`
	RecommendedRelations []string `json:"recommendedRelations"`
	IsArchived           bool     `json:"isArchived,omitempty"`
}

// Object is a data entity in a space.
type Object struct {
	ID         string                 `json:"id"`
	SpaceID    string                 `json:"spaceId"`
	TypeID     string                 `json:"typeId"`
	TypeName   string                 `json:"typeName,omitempty"`
	Name       string                 `json:"name"`
	Icon       string                 `json:"icon,omitempty"`
	Snippet    string                 `json:"snippet,omitempty"`
	Layout     string                 `json:"layout,omitempty"`
	IsArchived bool                   `json:"isArchived,omitempty"`
	IsDeleted  bool                   `json:"isDeleted,omitempty"`
	IsFavorite bool                   `json:"isFavorite,omitempty"`
	CreatedAt  *time.Time             `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time             `json:"updatedAt,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// SearchResult is the body of GET /v1/search.
type SearchResult struct {
	Objects []Object `json:"objects"`
	Total   int      `json:"total"`
	HasMore bool     `json:"hasMore"`
}

// GraphStats is the body of GET /v1/stats.
type GraphStats struct {
	TotalObjects   int            `json:"totalObjects"`
	TotalTypes     int            `json:"totalTypes"`
	TotalRelations int            `json:"totalRelations"`
	TotalSpaces    int            `json:"totalSpaces"`
	ObjectsByType  map[string]int `json:"objectsByType,omitempty"`
	StorageBytes   int64          `json:"storageBytes"`
}

// CreateSpaceRequest is the body of POST /v1/spaces.
type CreateSpaceRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// CreateRelationRequest is the body of POST /v1/spaces/{spaceId}/relations.
type CreateRelationRequest struct {
	Name          string         `json:"name"`
	Key           string         `json:"key,omitempty"`
	Format        string         `json:"format"`
	Description   string         `json:"description,omitempty"`
	MaxCount      int            `json:"maxCount,omitempty"`
	SelectOptions []SelectOption `json:"selectOptions,omitempty"`
}

// CreateTypeRequest is the body of POST /v1/spaces/{spaceId}/types.
type CreateTypeRequest struct {
	Name                 string   `json:"name"`
	Key                  string   `json:"key,omitempty"`
	Layout               string   `json:"layout"`
	Description          string   `json:"description,omitempty"`
	Icon                 string   `json:"icon,omitempty"`
	RecommendedRelations []string `json:"recommendedRelations"`
}

// CreateObjectRequest is the body of POST /v1/spaces/{spaceId}/objects.
type CreateObjectRequest struct {
	TypeID  string                 `json:"typeId"`
	Name    string                 `json:"name"`
	Icon    string                 `json:"icon,omitempty"`
	Details map[string]interface{} `json:"details"`
}

// SearchQuery filters GET /v1/search. Query may be empty only when ModifiedAfter
// is set.
type SearchQuery struct {
	Query         string
	Limit         int
	SpaceID       string
	TypeID        string
	ModifiedAfter time.Time
}

const (
	// DefaultSearchLimit applies when a query does not set a limit.
	DefaultSearchLimit = 20
	// MaxSearchLimit is the largest accepted limit.
	MaxSearchLimit = 100
)
