package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/ontology"
	"knowledgecore/internal/reconciler"
	"knowledgecore/pkg/logging"
)

// InputError reports a request that is rejected before anything is sent to the fleet.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// IsInputError reports whether err is an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

func inputErrorf(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// Service implements the knowledge operations shared by the MCP tools and the REST
// API. Every operation takes an optional profile override; otherwise it targets the
// identity carried by ctx.
type Service struct {
	router   *fleet.Router
	client   *backend.Client
	engine   *reconciler.Engine
	sessions *identity.Sessions
	resolver *identity.Resolver
	now      func() time.Time
}

// NewService wires a service over router.
func NewService(router *fleet.Router, resolver *identity.Resolver, engine *reconciler.Engine) *Service {
	return &Service{
		router:   router,
		client:   backend.NewClient(router),
		engine:   engine,
		sessions: identity.NewSessions(resolver),
		resolver: resolver,
		now:      time.Now,
	}
}

// Sessions returns the per-session identity store.
func (s *Service) Sessions() *identity.Sessions {
	return s.sessions
}

// Router returns the fleet router.
func (s *Service) Router() *fleet.Router {
	return s.router
}

// Engine returns the reconciliation engine.
func (s *Service) Engine() *reconciler.Engine {
	return s.engine
}

// SessionContext returns ctx carrying the identity selected by sessionID.
func (s *Service) SessionContext(ctx context.Context, sessionID string) context.Context {
	return identity.WithIdentity(ctx, s.sessions.Get(sessionID))
}

func (s *Service) profile(ctx context.Context, override string) string {
	return string(s.router.ResolveProfile(ctx, override))
}

// SwitchProfileOutput reports a profile switch.
type SwitchProfileOutput struct {
	PreviousProfile string `json:"previous_profile"`
	CurrentProfile  string `json:"current_profile"`
	Message         string `json:"message"`
}

// SwitchProfile selects profileName for the session.
func (s *Service) SwitchProfile(sessionID, profileName string) (*SwitchProfileOutput, error) {
	previous, current, err := s.sessions.Switch(sessionID, profileName)
	if err != nil {
		return nil, err
	}
	logging.Info("Profiles", "Profile switched from %s to %s", previous.Profile, current.Profile)
	return &SwitchProfileOutput{
		PreviousProfile: string(previous.Profile),
		CurrentProfile:  string(current.Profile),
		Message:         fmt.Sprintf("Switched from '%s' to '%s' profile", previous.Profile, current.Profile),
	}, nil
}

// CurrentProfileOutput describes the active identity.
type CurrentProfileOutput struct {
	Profile        string   `json:"profile"`
	SessionID      string   `json:"session_id,omitempty"`
	DefaultProfile string   `json:"default_profile"`
	Available      []string `json:"available"`
}

// CurrentProfile returns the identity active in ctx.
func (s *Service) CurrentProfile(ctx context.Context) *CurrentProfileOutput {
	id := s.resolver.Get(ctx)
	out := &CurrentProfileOutput{
		Profile:        string(id.Profile),
		SessionID:      id.SessionID,
		DefaultProfile: string(s.resolver.Default()),
		Available:      []string{},
	}
	for _, name := range s.router.Profiles() {
		out.Available = append(out.Available, string(name))
	}
	return out
}

// CreateSpaceInput is the input of CreateSpace.
type CreateSpaceInput struct {
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}

// CreateSpaceOutput reports a created space.
type CreateSpaceOutput struct {
	Space   backend.Space `json:"space"`
	Profile string        `json:"profile"`
	Message string        `json:"message"`
}

// CreateSpace creates a space.
func (s *Service) CreateSpace(ctx context.Context, in CreateSpaceInput) (*CreateSpaceOutput, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, inputErrorf("space name is required")
	}
	profile := s.profile(ctx, in.ProfileName)
	logging.Info("Spaces", "Creating space %s on profile %s", in.Name, profile)

	space, err := s.client.CreateSpace(ctx, profile, backend.CreateSpaceRequest{Name: in.Name, Icon: in.Icon})
	if err != nil {
		return nil, err
	}
	return &CreateSpaceOutput{
		Space:   *space,
		Profile: profile,
		Message: fmt.Sprintf("Created space '%s' with ID %s", space.Name, space.ID),
	}, nil
}

// ListSpacesOutput lists the spaces of a profile.
type ListSpacesOutput struct {
	Spaces  []backend.Space `json:"spaces"`
	Profile string          `json:"profile"`
}

// ListSpaces lists spaces.
func (s *Service) ListSpaces(ctx context.Context, profileName string) (*ListSpacesOutput, error) {
	profile := s.profile(ctx, profileName)
	spaces, err := s.client.ListSpaces(ctx, profile)
	if err != nil {
		return nil, err
	}
	if spaces == nil {
		spaces = []backend.Space{}
	}
	return &ListSpacesOutput{Spaces: spaces, Profile: profile}, nil
}

// ListObjectsOutput lists the objects of a space.
type ListObjectsOutput struct {
	Objects []backend.Object `json:"objects"`
	SpaceID string           `json:"space_id"`
	Profile string           `json:"profile"`
}

// ListObjects lists the objects of a space.
func (s *Service) ListObjects(ctx context.Context, spaceID, profileName string) (*ListObjectsOutput, error) {
	if strings.TrimSpace(spaceID) == "" {
		return nil, inputErrorf("space_id is required")
	}
	profile := s.profile(ctx, profileName)
	objects, err := s.client.ListObjects(ctx, profile, spaceID)
	if err != nil {
		return nil, err
	}
	if objects == nil {
		objects = []backend.Object{}
	}
	return &ListObjectsOutput{Objects: objects, SpaceID: spaceID, Profile: profile}, nil
}

// CreateObjectInput is the input of CreateObject.
type CreateObjectInput struct {
	SpaceID     string                 `json:"space_id"`
	TypeID      string                 `json:"type_id"`
	Name        string                 `json:"name"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	Icon        string                 `json:"icon,omitempty"`
	ProfileName string                 `json:"profile_name,omitempty"`
}

// CreateObjectOutput reports a created object.
type CreateObjectOutput struct {
	Object  backend.Object `json:"object"`
	Message string         `json:"message"`
}

// CreateObject creates an object.
func (s *Service) CreateObject(ctx context.Context, in CreateObjectInput) (*CreateObjectOutput, error) {
	switch {
	case in.SpaceID == "":
		return nil, inputErrorf("space_id is required")
	case in.TypeID == "":
		return nil, inputErrorf("type_id is required")
	case strings.TrimSpace(in.Name) == "":
		return nil, inputErrorf("name is required")
	}
	fields := in.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}

	obj, err := s.client.CreateObject(ctx, s.profile(ctx, in.ProfileName), in.SpaceID, backend.CreateObjectRequest{
		TypeID:  in.TypeID,
		Name:    in.Name,
		Icon:    in.Icon,
		Details: fields,
	})
	if err != nil {
		return nil, err
	}
	return &CreateObjectOutput{
		Object:  *obj,
		Message: fmt.Sprintf("Created object '%s' with ID %s", obj.Name, obj.ID),
	}, nil
}

// SearchGlobalInput is the input of SearchGlobal.
type SearchGlobalInput struct {
	Query       string `json:"query"`
	SpaceID     string `json:"space_id,omitempty"`
	TypeID      string `json:"type_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}

// SearchGlobalOutput lists matching objects.
type SearchGlobalOutput struct {
	Objects []backend.Object `json:"objects"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
	Query   string           `json:"query"`
}

// SearchGlobal searches objects. Limit defaults to 20 and must be between 1 and 100.
func (s *Service) SearchGlobal(ctx context.Context, in SearchGlobalInput) (*SearchGlobalOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, inputErrorf("search query is required")
	}
	if in.Limit < 0 || in.Limit > backend.MaxSearchLimit {
		return nil, inputErrorf("search limit must be between 1 and %d, got %d", backend.MaxSearchLimit, in.Limit)
	}
	result, err := s.client.Search(ctx, s.profile(ctx, in.ProfileName), backend.SearchQuery{
		Query:   in.Query,
		Limit:   in.Limit,
		SpaceID: in.SpaceID,
		TypeID:  in.TypeID,
	})
	if err != nil {
		return nil, err
	}
	objects := result.Objects
	if objects == nil {
		objects = []backend.Object{}
	}
	return &SearchGlobalOutput{Objects: objects, Total: result.Total, HasMore: result.HasMore, Query: in.Query}, nil
}

// GraphStatsOutput holds the statistics of a profile.
type GraphStatsOutput struct {
	Stats   backend.GraphStats `json:"stats"`
	Profile string             `json:"profile"`
}

// GraphStats fetches graph statistics.
func (s *Service) GraphStats(ctx context.Context, profileName string) (*GraphStatsOutput, error) {
	profile := s.profile(ctx, profileName)
	stats, err := s.client.Stats(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &GraphStatsOutput{Stats: *stats, Profile: profile}, nil
}

// EnsureOntologyInput is the input of EnsureOntology.
type EnsureOntologyInput struct {
	SpaceID     string             `json:"space_id"`
	Manifest    *ontology.Manifest `json:"manifest"`
	DryRun      bool               `json:"dry_run,omitempty"`
	ProfileName string             `json:"profile_name,omitempty"`
}

// EnsureOntology reconciles a space against a manifest. On a partial application
// both the partial result and the error are returned.
func (s *Service) EnsureOntology(ctx context.Context, in EnsureOntologyInput) (*reconciler.Result, error) {
	if strings.TrimSpace(in.SpaceID) == "" {
		return nil, inputErrorf("space_id is required")
	}
	if in.Manifest == nil {
		return nil, inputErrorf("manifest is required")
	}
	in.Manifest.ApplyDefaults()
	return s.engine.EnsureOntology(ctx, reconciler.Request{
		Manifest: in.Manifest,
		SpaceID:  in.SpaceID,
		DryRun:   in.DryRun,
		Profile:  in.ProfileName,
	})
}

const (
	// DefaultBriefingHours is the look-back window of a briefing that sets none.
	DefaultBriefingHours = 24
	// MaxBriefingHours is the longest accepted look-back window, one week.
	MaxBriefingHours = 168

	briefingSearchLimit    = 50
	briefingObjectsPerType = 5
	maxBriefingHighlights  = 5
)

// DailyBriefingInput is the input of DailyBriefing.
type DailyBriefingInput struct {
	Hours       int    `json:"hours,omitempty"`
	SpaceID     string `json:"space_id,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}

// BriefingGroup holds the recently modified objects of one type.
type BriefingGroup struct {
	TypeName string           `json:"type_name"`
	Objects  []backend.Object `json:"objects"`
}

// DailyBriefingOutput summarizes recent activity of a profile.
type DailyBriefingOutput struct {
	Summary       string          `json:"summary"`
	Profile       string          `json:"profile"`
	Hours         int             `json:"hours"`
	GeneratedAt   time.Time       `json:"generated_at"`
	ModifiedCount int             `json:"modified_count"`
	Groups        []BriefingGroup `json:"groups"`
	Highlights    []string        `json:"highlights"`
}

// DailyBriefing lists the objects modified in the last in.Hours hours, grouped by
// type in the order the types first appear, and renders them as markdown.
func (s *Service) DailyBriefing(ctx context.Context, in DailyBriefingInput) (*DailyBriefingOutput, error) {
	if in.Hours == 0 {
		in.Hours = DefaultBriefingHours
	}
	if in.Hours < 1 || in.Hours > MaxBriefingHours {
		return nil, inputErrorf("hours must be between 1 and %d, got %d", MaxBriefingHours, in.Hours)
	}

	profile := s.profile(ctx, in.ProfileName)
	now := s.now().UTC()
	logging.Info("Briefing", "Generating briefing for the last %d hours on profile %s", in.Hours, profile)

	result, err := s.client.Search(ctx, profile, backend.SearchQuery{
		Limit:         briefingSearchLimit,
		SpaceID:       in.SpaceID,
		ModifiedAfter: now.Add(-time.Duration(in.Hours) * time.Hour),
	})
	if err != nil {
		return nil, err
	}

	out := &DailyBriefingOutput{
		Profile:       profile,
		Hours:         in.Hours,
		GeneratedAt:   now,
		ModifiedCount: len(result.Objects),
		Groups:        []BriefingGroup{},
		Highlights:    []string{},
	}
	index := make(map[string]int)
	for _, obj := range result.Objects {
		typeName := obj.TypeName
		if typeName == "" {
			typeName = "Unknown"
		}
		i, ok := index[typeName]
		if !ok {
			i = len(out.Groups)
			index[typeName] = i
			out.Groups = append(out.Groups, BriefingGroup{TypeName: typeName})
		}
		out.Groups[i].Objects = append(out.Groups[i].Objects, obj)
	}
	for _, group := range out.Groups {
		for _, obj := range group.Objects[:min(len(group.Objects), briefingObjectsPerType)] {
			if len(out.Highlights) == maxBriefingHighlights {
				break
			}
			out.Highlights = append(out.Highlights, fmt.Sprintf("%s: %s", group.TypeName, objectName(obj)))
		}
	}
	out.Summary = formatBriefing(out)
	return out, nil
}

// FleetStatus checks one profile or all of them.
func (s *Service) FleetStatus(ctx context.Context, profileName string) map[string]fleet.HealthStatus {
	return s.router.HealthCheck(ctx, profileName)
}
