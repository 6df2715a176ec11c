package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/backend/backendtest"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/mcpserver"
	"knowledgecore/internal/reconciler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	personal *backendtest.Server
	work     *backendtest.Server
	gateway  *Gateway
	http     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	personal := backendtest.NewServer(t)
	work := backendtest.NewServer(t)
	router, resolver := backendtest.NewRouter(t, map[identity.Name]*backendtest.Server{
		identity.Personal: personal,
		identity.Work:     work,
	})
	engine := reconciler.NewEngine(backend.NewClient(router),
		reconciler.WithBatchDelay(0),
		reconciler.WithProfileResolver(router),
		reconciler.WithMetrics(reconciler.NewMetrics()),
	)
	service := mcpserver.NewService(router, resolver, engine)
	gateway := NewGateway(mcpserver.NewServer(service, "1.2.3"), "1.2.3")

	srv := httptest.NewServer(gateway.Handler())
	t.Cleanup(srv.Close)

	return &fixture{personal: personal, work: work, gateway: gateway, http: srv}
}

func (f *fixture) do(t *testing.T, method, path, session string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, f.http.URL+path, reader)
	require.NoError(t, err)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestGateway_Health(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	health := decodeAs[HealthResponse](t, data)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, "personal", health.Profile)
}

func TestGateway_Status(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, status)

	st := decodeAs[StatusResponse](t, data)
	assert.Equal(t, "1.2.3", st.Version)
	assert.Equal(t, "personal", st.CurrentProfile)
	assert.Equal(t, "personal", st.DefaultProfile)
	require.Len(t, st.Fleet, 2)
	assert.True(t, st.Fleet["personal"].Healthy())
	assert.True(t, st.Fleet["work"].Healthy())
}

func TestGateway_Metrics(t *testing.T) {
	f := newFixture(t)

	// Generate at least one fleet request so the collectors have samples.
	status, _ := f.do(t, http.MethodGet, "/api/v1/spaces", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, data := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "knowledgecore_fleet_requests_total")
}

func TestGateway_SwitchProfileIsPerSession(t *testing.T) {
	f := newFixture(t)
	f.work.AddSpace("Office")

	status, data := f.do(t, http.MethodPost, "/api/v1/profile/switch", "alice", map[string]string{"profile_name": "work"})
	require.Equal(t, http.StatusOK, status, string(data))
	out := decodeAs[mcpserver.SwitchProfileOutput](t, data)
	assert.Equal(t, "personal", out.PreviousProfile)
	assert.Equal(t, "work", out.CurrentProfile)
	assert.Equal(t, "Switched from 'personal' to 'work' profile", out.Message)

	_, data = f.do(t, http.MethodGet, "/api/v1/spaces", "alice", nil)
	spaces := decodeAs[mcpserver.ListSpacesOutput](t, data)
	assert.Equal(t, "work", spaces.Profile)
	require.Len(t, spaces.Spaces, 1)
	assert.Equal(t, "Office", spaces.Spaces[0].Name)

	_, data = f.do(t, http.MethodGet, "/api/v1/spaces", "bob", nil)
	spaces = decodeAs[mcpserver.ListSpacesOutput](t, data)
	assert.Equal(t, "personal", spaces.Profile)
	assert.Empty(t, spaces.Spaces)

	_, data = f.do(t, http.MethodGet, "/health", "alice", nil)
	assert.Equal(t, "work", decodeAs[HealthResponse](t, data).Profile)
}

func TestGateway_SwitchProfileRejectsUnknownName(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodPost, "/api/v1/profile/switch", "alice", map[string]string{"profile_name": "finance"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decodeAs[ErrorResponse](t, data).Error, "finance")
}

func TestGateway_ProfileQueryOverride(t *testing.T) {
	f := newFixture(t)
	f.work.AddSpace("Office")

	_, data := f.do(t, http.MethodGet, "/api/v1/spaces?profile=work", "", nil)
	spaces := decodeAs[mcpserver.ListSpacesOutput](t, data)
	assert.Equal(t, "work", spaces.Profile)
	assert.Len(t, spaces.Spaces, 1)

	status, _ := f.do(t, http.MethodGet, "/api/v1/spaces?profile=research", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGateway_SpacesObjectsSearchStats(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodPost, "/api/v1/spaces", "", mcpserver.CreateSpaceInput{Name: "Notes"})
	require.Equal(t, http.StatusCreated, status, string(data))
	space := decodeAs[mcpserver.CreateSpaceOutput](t, data).Space

	status, data = f.do(t, http.MethodPost, "/api/v1/objects", "", mcpserver.CreateObjectInput{
		SpaceID: space.ID,
		TypeID:  "type-note",
		Name:    "Meeting notes",
	})
	require.Equal(t, http.StatusCreated, status, string(data))

	status, data = f.do(t, http.MethodGet, "/api/v1/spaces/"+space.ID+"/objects", "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	listed := decodeAs[mcpserver.ListObjectsOutput](t, data)
	require.Len(t, listed.Objects, 1)
	assert.Equal(t, "Meeting notes", listed.Objects[0].Name)
	assert.Equal(t, "personal", listed.Profile)

	status, _ = f.do(t, http.MethodGet, "/api/v1/spaces/missing/objects", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data = f.do(t, http.MethodGet, "/api/v1/search?query=meeting&limit=5", "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	found := decodeAs[mcpserver.SearchGlobalOutput](t, data)
	require.Len(t, found.Objects, 1)
	assert.Equal(t, "Meeting notes", found.Objects[0].Name)

	status, data = f.do(t, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	stats := decodeAs[mcpserver.GraphStatsOutput](t, data)
	assert.Equal(t, "personal", stats.Profile)
	assert.Equal(t, 1, stats.Stats.TotalObjects)
}

func TestGateway_InputErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"missing space name", http.MethodPost, "/api/v1/spaces", mcpserver.CreateSpaceInput{}},
		{"missing object type", http.MethodPost, "/api/v1/objects", mcpserver.CreateObjectInput{SpaceID: "s", Name: "n"}},
		{"malformed body", http.MethodPost, "/api/v1/spaces", "{not json"},
		{"limit out of range", http.MethodGet, "/api/v1/search?query=x&limit=500", nil},
		{"limit not a number", http.MethodGet, "/api/v1/search?query=x&limit=ten", nil},
		{"empty query", http.MethodGet, "/api/v1/search", nil},
		{"missing manifest", http.MethodPost, "/api/v1/ontology/ensure", map[string]string{"space_id": "s"}},
		{"missing ensure space", http.MethodPost, "/api/v1/ontology/ensure", crmRequest("", false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := f.do(t, tt.method, tt.path, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, string(data))
			assert.NotEmpty(t, decodeAs[ErrorResponse](t, data).Error)
		})
	}
	assert.Empty(t, f.personal.Requests())
}

func crmRequest(spaceID string, dryRun bool) map[string]interface{} {
	return map[string]interface{}{
		"space_id": spaceID,
		"dry_run":  dryRun,
		"manifest": map[string]interface{}{
			"name": "CRM",
			"relations": []interface{}{
				map[string]interface{}{"name": "Email", "format": "email"},
			},
			"types": []interface{}{
				map[string]interface{}{"name": "Contact", "relations": []interface{}{"Email"}},
			},
		},
	}
}

func TestGateway_EnsureOntology(t *testing.T) {
	f := newFixture(t)
	space := f.personal.AddSpace("CRM")

	status, data := f.do(t, http.MethodPost, "/api/v1/ontology/ensure", "", crmRequest(space, true))
	require.Equal(t, http.StatusOK, status, string(data))
	result := decodeAs[reconciler.Result](t, data)
	assert.True(t, result.DryRun)
	assert.Equal(t, "Dry run: Would create 1 relations and 1 types", result.Message)
	assert.Empty(t, f.personal.Relations(space))

	status, data = f.do(t, http.MethodPost, "/api/v1/ontology/ensure", "", crmRequest(space, false))
	require.Equal(t, http.StatusOK, status, string(data))
	result = decodeAs[reconciler.Result](t, data)
	assert.Equal(t, "Created 1 relations and 1 types", result.Message)
	assert.Equal(t, []string{"Email"}, result.CreatedRelations)
	assert.Equal(t, []string{"Contact"}, result.CreatedTypes)
	assert.Len(t, f.personal.Types(space), 1)
}

func TestGateway_EnsureOntologyErrors(t *testing.T) {
	f := newFixture(t)
	space := f.personal.AddSpace("CRM")

	invalid := crmRequest(space, false)
	invalid["manifest"] = map[string]interface{}{"name": ""}
	status, _ := f.do(t, http.MethodPost, "/api/v1/ontology/ensure", "", invalid)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/ontology/ensure", "", crmRequest("missing-space", false))
	assert.Equal(t, http.StatusNotFound, status)

	f.personal.FailCreate("types", 0, http.StatusInternalServerError)
	status, data := f.do(t, http.MethodPost, "/api/v1/ontology/ensure", "", crmRequest(space, false))
	assert.Equal(t, http.StatusBadGateway, status)
	body := decodeAs[ErrorResponse](t, data)
	require.NotNil(t, body.Result)
	assert.Equal(t, []string{"Email"}, body.Result.CreatedRelations)
	assert.Empty(t, body.Result.CreatedTypes)
}

func TestGateway_Fleet(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodGet, "/api/v1/fleet?profile=work", "", nil)
	require.Equal(t, http.StatusOK, status)
	statuses := decodeAs[map[string]map[string]interface{}](t, data)
	require.Len(t, statuses, 1)
	assert.Equal(t, "healthy", statuses["work"]["status"])
}

func TestGateway_StartAndShutdown(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.gateway.Start("127.0.0.1:0"))
	addr := f.gateway.Addr()
	require.NotEmpty(t, addr)
	assert.Error(t, f.gateway.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.gateway.Shutdown(ctx))
	assert.Empty(t, f.gateway.Addr())
	require.NoError(t, f.gateway.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/health")
	assert.Error(t, err)
}

func TestGateway_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.gateway.Run(ctx, "127.0.0.1:0")
	}()

	require.Eventually(t, func() bool { return f.gateway.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop")
	}
}
