// Package backendtest provides an in-memory fleet member for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"knowledgecore/internal/backend"
)

// Recorded is a request the server received.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Body   []byte
	Header http.Header
}

type space struct {
	info      backend.Space
	relations []backend.Relation
	types     []backend.ObjectType
	objects   []backend.Object
}

func (sp *space) typeName(typeID string) string {
	for _, typ := range sp.types {
		if typ.ID == typeID {
			return typ.Name
		}
	}
	return ""
}

// modified returns when obj last changed.
func modified(obj backend.Object) time.Time {
	switch {
	case obj.UpdatedAt != nil:
		return *obj.UpdatedAt
	case obj.CreatedAt != nil:
		return *obj.CreatedAt
	default:
		return time.Time{}
	}
}

type failure struct {
	after  int
	status int
}

// Server is a fake backend speaking the fleet member JSON API.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	version    string
	spaces     map[string]*space
	spaceOrder []string
	nextID     int
	requests   []Recorded
	creates    map[string]int
	failures   map[string]failure
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		version:  "test",
		spaces:   make(map[string]*space),
		creates:  make(map[string]int),
		failures: make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/spaces", s.handleListSpaces)
	mux.HandleFunc("POST /v1/spaces", s.handleCreateSpace)
	mux.HandleFunc("GET /v1/spaces/{spaceId}/relations", s.handleListRelations)
	mux.HandleFunc("POST /v1/spaces/{spaceId}/relations", s.handleCreateRelation)
	mux.HandleFunc("GET /v1/spaces/{spaceId}/types", s.handleListTypes)
	mux.HandleFunc("POST /v1/spaces/{spaceId}/types", s.handleCreateType)
	mux.HandleFunc("GET /v1/spaces/{spaceId}/objects", s.handleListObjects)
	mux.HandleFunc("POST /v1/spaces/{spaceId}/objects", s.handleCreateObject)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// AddSpace seeds a space and returns its id.
func (s *Server) AddSpace(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSpaceLocked(name, "").info.ID
}

func (s *Server) addSpaceLocked(name, icon string) *space {
	now := time.Now().UTC()
	sp := &space{info: backend.Space{ID: s.newIDLocked("space"), Name: name, Icon: icon, CreatedAt: &now}}
	s.spaces[sp.info.ID] = sp
	s.spaceOrder = append(s.spaceOrder, sp.info.ID)
	return sp
}

// AddRelation seeds a relation and returns it with its id.
func (s *Server) AddRelation(spaceID string, rel backend.Relation) backend.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.mustSpaceLocked(spaceID)
	rel.ID = s.newIDLocked("rel")
	rel.SpaceID = spaceID
	sp.relations = append(sp.relations, rel)
	return rel
}

// AddType seeds an object type and returns it with its id.
func (s *Server) AddType(spaceID string, typ backend.ObjectType) backend.ObjectType {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.mustSpaceLocked(spaceID)
	typ.ID = s.newIDLocked("type")
	typ.SpaceID = spaceID
	sp.types = append(sp.types, typ)
	return typ
}

// AddObject seeds an object and returns it with its id. A zero CreatedAt is set to now.
func (s *Server) AddObject(spaceID string, obj backend.Object) backend.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.mustSpaceLocked(spaceID)
	obj.ID = s.newIDLocked("obj")
	obj.SpaceID = spaceID
	if obj.TypeName == "" {
		obj.TypeName = sp.typeName(obj.TypeID)
	}
	if obj.CreatedAt == nil {
		now := time.Now().UTC()
		obj.CreatedAt = &now
	}
	sp.objects = append(sp.objects, obj)
	return obj
}

// Relations returns the relations of a space.
func (s *Server) Relations(spaceID string) []backend.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Relation(nil), s.mustSpaceLocked(spaceID).relations...)
}

// Types returns the object types of a space.
func (s *Server) Types(spaceID string) []backend.ObjectType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.ObjectType(nil), s.mustSpaceLocked(spaceID).types...)
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// CreateCount returns how many creations of kind ("spaces", "relations", "types",
// "objects") succeeded.
func (s *Server) CreateCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[kind]
}

// FailCreate makes every creation of kind after the first `after` successful ones
// fail with status.
func (s *Server) FailCreate(kind string, after, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] = failure{after: after, status: status}
}

func (s *Server) newIDLocked(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Server) mustSpaceLocked(id string) *space {
	sp, ok := s.spaces[id]
	if !ok {
		panic("backendtest: unknown space " + id)
	}
	return sp
}

// beginCreate reports whether a creation of kind may proceed, writing the
// configured failure otherwise. Must be called with s.mu held.
func (s *Server) beginCreateLocked(w http.ResponseWriter, kind string) bool {
	if f, ok := s.failures[kind]; ok && s.creates[kind] >= f.after {
		writeJSON(w, f.status, map[string]string{"error": "injected failure"})
		return false
	}
	return true
}

func (s *Server) spaceFromPath(w http.ResponseWriter, r *http.Request) (*space, bool) {
	sp, ok := s.spaces[r.PathValue("spaceId")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "space not found"})
		return nil, false
	}
	return sp, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.Health{Status: "ok", Version: s.version})
}

func (s *Server) handleListSpaces(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spaces := make([]backend.Space, 0, len(s.spaceOrder))
	for _, id := range s.spaceOrder {
		spaces = append(spaces, s.spaces[id].info)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spaces": spaces})
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateSpaceRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.beginCreateLocked(w, "spaces") {
		return
	}
	sp := s.addSpaceLocked(req.Name, req.Icon)
	s.creates["spaces"]++
	writeJSON(w, http.StatusCreated, sp.info)
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"relations": append([]backend.Relation{}, sp.relations...)})
}

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateRelationRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok || !s.beginCreateLocked(w, "relations") {
		return
	}
	rel := backend.Relation{
		ID:            s.newIDLocked("rel"),
		SpaceID:       sp.info.ID,
		Key:           req.Key,
		Name:          req.Name,
		Format:        req.Format,
		Description:   req.Description,
		MaxCount:      req.MaxCount,
		SelectOptions: req.SelectOptions,
	}
	sp.relations = append(sp.relations, rel)
	s.creates["relations"]++
	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"types": append([]backend.ObjectType{}, sp.types...)})
}

func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateTypeRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok || !s.beginCreateLocked(w, "types") {
		return
	}
	typ := backend.ObjectType{
		ID:                   s.newIDLocked("type"),
		SpaceID:              sp.info.ID,
		Key:                  req.Key,
		Name:                 req.Name,
		Description:          req.Description,
		Icon:                 req.Icon,
		Layout:               req.Layout,
		RecommendedRelations: req.RecommendedRelations,
	}
	sp.types = append(sp.types, typ)
	s.creates["types"]++
	writeJSON(w, http.StatusCreated, typ)
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"objects": append([]backend.Object{}, sp.objects...)})
}

func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateObjectRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaceFromPath(w, r)
	if !ok || !s.beginCreateLocked(w, "objects") {
		return
	}
	now := time.Now().UTC()
	obj := backend.Object{
		ID:        s.newIDLocked("obj"),
		SpaceID:   sp.info.ID,
		TypeID:    req.TypeID,
		TypeName:  sp.typeName(req.TypeID),
		Name:      req.Name,
		Icon:      req.Icon,
		Details:   req.Details,
		CreatedAt: &now,
	}
	sp.objects = append(sp.objects, obj)
	s.creates["objects"]++
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.ToLower(q.Get("query"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = backend.DefaultSearchLimit
	}
	var after time.Time
	if v := q.Get("modifiedAfter"); v != "" {
		if after, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifiedAfter"})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []backend.Object
	for _, id := range s.spaceOrder {
		if spaceID := q.Get("spaceId"); spaceID != "" && spaceID != id {
			continue
		}
		for _, obj := range s.spaces[id].objects {
			if typeID := q.Get("typeId"); typeID != "" && obj.TypeID != typeID {
				continue
			}
			if !after.IsZero() && !modified(obj).After(after) {
				continue
			}
			if strings.Contains(strings.ToLower(obj.Name), query) {
				matches = append(matches, obj)
			}
		}
	}

	result := backend.SearchResult{Objects: []backend.Object{}, Total: len(matches)}
	if len(matches) > limit {
		result.Objects = append(result.Objects, matches[:limit]...)
		result.HasMore = true
	} else {
		result.Objects = append(result.Objects, matches...)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := backend.GraphStats{TotalSpaces: len(s.spaces), ObjectsByType: map[string]int{}}
	for _, sp := range s.spaces {
		stats.TotalObjects += len(sp.objects)
		stats.TotalTypes += len(sp.types)
		stats.TotalRelations += len(sp.relations)
		for _, obj := range sp.objects {
			stats.ObjectsByType[obj.TypeID]++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
