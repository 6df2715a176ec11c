package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/mcpserver"
	"knowledgecore/internal/ontology"
	"knowledgecore/internal/reconciler"
	"knowledgecore/pkg/logging"
)

// maxRequestBody caps REST request bodies, manifests included.
const maxRequestBody = 4 << 20

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Profile string `json:"profile"`
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Version        string                        `json:"version"`
	CurrentProfile string                        `json:"current_profile"`
	DefaultProfile string                        `json:"default_profile"`
	Fleet          map[string]fleet.HealthStatus `json:"fleet"`
	Reconcile      reconciler.MetricsSummary     `json:"reconcile"`
}

// ErrorResponse is the body of every failed REST call.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Result *reconciler.Result `json:"result,omitempty"`
}

type switchProfileRequest struct {
	ProfileName string `json:"profile_name"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	current := g.service.CurrentProfile(g.sessionContext(r))
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: g.version,
		Profile: current.Profile,
	})
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := g.sessionContext(r)
	current := g.service.CurrentProfile(ctx)
	writeJSON(w, http.StatusOK, StatusResponse{
		Version:        g.version,
		CurrentProfile: current.Profile,
		DefaultProfile: current.DefaultProfile,
		Fleet:          g.service.FleetStatus(ctx, ""),
		Reconcile:      g.service.Engine().Metrics().GetSummary(),
	})
}

func (g *Gateway) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/profile/switch", g.handleSwitchProfile)
	mux.HandleFunc("GET /api/v1/profile", g.handleCurrentProfile)
	mux.HandleFunc("GET /api/v1/spaces", g.handleListSpaces)
	mux.HandleFunc("POST /api/v1/spaces", g.handleCreateSpace)
	mux.HandleFunc("GET /api/v1/spaces/{spaceId}/objects", g.handleListObjects)
	mux.HandleFunc("POST /api/v1/objects", g.handleCreateObject)
	mux.HandleFunc("GET /api/v1/search", g.handleSearch)
	mux.HandleFunc("GET /api/v1/stats", g.handleStats)
	mux.HandleFunc("POST /api/v1/ontology/ensure", g.handleEnsureOntology)
	mux.HandleFunc("GET /api/v1/fleet", g.handleFleet)
}

func (g *Gateway) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	var req switchProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := g.service.SwitchProfile(g.sessionID(r), req.ProfileName)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleCurrentProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.service.CurrentProfile(g.sessionContext(r)))
}

func (g *Gateway) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	out, err := g.service.ListSpaces(g.sessionContext(r), r.URL.Query().Get("profile"))
	respond(w, http.StatusOK, out, err)
}

func (g *Gateway) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var in mcpserver.CreateSpaceInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := g.service.CreateSpace(g.sessionContext(r), in)
	respond(w, http.StatusCreated, out, err)
}

func (g *Gateway) handleListObjects(w http.ResponseWriter, r *http.Request) {
	out, err := g.service.ListObjects(g.sessionContext(r), r.PathValue("spaceId"), r.URL.Query().Get("profile"))
	respond(w, http.StatusOK, out, err)
}

func (g *Gateway) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var in mcpserver.CreateObjectInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := g.service.CreateObject(g.sessionContext(r), in)
	respond(w, http.StatusCreated, out, err)
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := mcpserver.SearchGlobalInput{
		Query:       q.Get("query"),
		SpaceID:     q.Get("space_id"),
		TypeID:      q.Get("type_id"),
		ProfileName: q.Get("profile"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, &mcpserver.InputError{Message: fmt.Sprintf("invalid limit %q", raw)}, nil)
			return
		}
		in.Limit = limit
	}
	out, err := g.service.SearchGlobal(g.sessionContext(r), in)
	respond(w, http.StatusOK, out, err)
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	out, err := g.service.GraphStats(g.sessionContext(r), r.URL.Query().Get("profile"))
	respond(w, http.StatusOK, out, err)
}

func (g *Gateway) handleEnsureOntology(w http.ResponseWriter, r *http.Request) {
	var in mcpserver.EnsureOntologyInput
	if !decodeBody(w, r, &in) {
		return
	}
	result, err := g.service.EnsureOntology(g.sessionContext(r), in)
	if err != nil {
		writeError(w, err, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) handleFleet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.service.FleetStatus(g.sessionContext(r), r.URL.Query().Get("profile")))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(v); err != nil {
		writeError(w, &mcpserver.InputError{Message: fmt.Sprintf("invalid request body: %v", err)}, nil)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, v interface{}, err error) {
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Gateway", err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error, result *reconciler.Result) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error("Gateway", err, "Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Result: result})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	var remoteErr *fleet.RemoteError
	switch {
	case mcpserver.IsInputError(err),
		ontology.IsValidationError(err),
		identity.IsInvalidProfile(err),
		fleet.IsUnknownProfile(err):
		return http.StatusBadRequest
	case fleet.IsNotFound(err):
		return http.StatusNotFound
	case fleet.IsRemoteUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &remoteErr), reconciler.IsPartialApplication(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
