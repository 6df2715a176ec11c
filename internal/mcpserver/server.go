package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"knowledgecore/internal/ontology"
	"knowledgecore/internal/reconciler"
	"knowledgecore/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is announced to MCP clients.
const ServerName = "knowledgecore"

// Server exposes a Service as MCP tools.
type Server struct {
	service   *Service
	mcpServer *server.MCPServer
	handlers  map[string]server.ToolHandlerFunc

	// fallbackSession keys the identity of callers without an MCP session.
	fallbackSession string
}

// NewServer creates the MCP server and registers every tool.
func NewServer(service *Service, version string) *Server {
	s := &Server{
		service:         service,
		handlers:        make(map[string]server.ToolHandlerFunc),
		fallbackSession: uuid.NewString(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		service.Sessions().Forget(session.SessionID())
		logging.Debug("MCPServer", "Session %s ended", session.SessionID())
	})

	s.mcpServer = server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(hooks),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// Service returns the service behind the tools.
func (s *Server) Service() *Service {
	return s.service
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// HTTPHandler returns the streamable HTTP transport, to be mounted at /mcp.
func (s *Server) HTTPHandler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// ServeStdio serves MCP over stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// sessionID returns the MCP session of the call, or the server's fallback session.
func (s *Server) sessionID(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil && session.SessionID() != "" {
		return session.SessionID()
	}
	return s.fallbackSession
}

// withSession wraps a handler so it runs with the identity of the caller's session.
func (s *Server) withSession(handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(s.service.SessionContext(ctx, s.sessionID(ctx)), request)
	}
}

func profileOption() mcp.ToolOption {
	return mcp.WithString("profile_name",
		mcp.Description("Target profile (personal, work or research); defaults to the active profile"),
	)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.handlers[tool.Name] = handler
	s.mcpServer.AddTool(tool, handler)
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("switch_profile",
		mcp.WithDescription("Switch the active profile for subsequent operations in this session"),
		mcp.WithString("profile_name",
			mcp.Required(),
			mcp.Description("Profile to switch to: personal, work or research"),
		),
	), s.handleSwitchProfile)

	s.addTool(mcp.NewTool("get_current_profile",
		mcp.WithDescription("Show the active profile of this session"),
	), s.withSession(s.handleGetCurrentProfile))

	s.addTool(mcp.NewTool("create_space",
		mcp.WithDescription("Create a new space"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new space")),
		mcp.WithString("icon", mcp.Description("Optional emoji icon")),
		profileOption(),
	), s.withSession(s.handleCreateSpace))

	s.addTool(mcp.NewTool("list_spaces",
		mcp.WithDescription("List all spaces of a profile"),
		profileOption(),
	), s.withSession(s.handleListSpaces))

	s.addTool(mcp.NewTool("create_object",
		mcp.WithDescription("Create a new object in a space"),
		mcp.WithString("space_id", mcp.Required(), mcp.Description("Target space ID")),
		mcp.WithString("type_id", mcp.Required(), mcp.Description("Object type ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Object name")),
		mcp.WithObject("fields", mcp.Description("Field values keyed by relation key")),
		mcp.WithString("icon", mcp.Description("Optional emoji icon")),
		profileOption(),
	), s.withSession(s.handleCreateObject))

	s.addTool(mcp.NewTool("search_global",
		mcp.WithDescription("Search for objects across the knowledge graph"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithString("space_id", mcp.Description("Only search this space")),
		mcp.WithString("type_id", mcp.Description("Only return objects of this type")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, 1 to 100 (default 20)")),
		profileOption(),
	), s.withSession(s.handleSearchGlobal))

	s.addTool(mcp.NewTool("get_graph_stats",
		mcp.WithDescription("Get statistics about the knowledge graph"),
		profileOption(),
	), s.withSession(s.handleGetGraphStats))

	s.addTool(mcp.NewTool("ensure_ontology",
		mcp.WithDescription("Ensure a set of types and relations exists in a space, reusing existing ones with similar names"),
		mcp.WithString("space_id", mcp.Required(), mcp.Description("Target space ID")),
		mcp.WithString("manifest_json", mcp.Required(), mcp.Description("Ontology manifest as JSON (or YAML)")),
		mcp.WithBoolean("dry_run", mcp.Description("Only report what would be created")),
		profileOption(),
	), s.withSession(s.handleEnsureOntology))

	s.addTool(mcp.NewTool("daily_briefing",
		mcp.WithDescription("Summarize the objects modified recently, grouped by type, as markdown"),
		mcp.WithNumber("hours", mcp.Description("Look-back window in hours, 1 to 168 (default 24)")),
		mcp.WithString("space_id", mcp.Description("Only include this space")),
		profileOption(),
	), s.withSession(s.handleDailyBriefing))

	s.addTool(mcp.NewTool("fleet_status",
		mcp.WithDescription("Check the health of one or all fleet members"),
		mcp.WithString("profile_name", mcp.Description("Only check this profile")),
		mcp.WithBoolean("json", mcp.Description("Return the raw status map as JSON")),
	), s.handleFleetStatus)
}

func (s *Server) handleSwitchProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("profile_name")
	if err != nil {
		return mcp.NewToolResultError("profile_name argument is required"), nil
	}
	out, err := s.service.SwitchProfile(s.sessionID(ctx), name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out.Message), nil
}

func (s *Server) handleGetCurrentProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := s.service.CurrentProfile(ctx)
	return mcp.NewToolResultText(fmt.Sprintf("Active profile: %s (default: %s)", out.Profile, out.DefaultProfile)), nil
}

func (s *Server) handleCreateSpace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}
	out, err := s.service.CreateSpace(ctx, CreateSpaceInput{
		Name:        name,
		Icon:        request.GetString("icon", ""),
		ProfileName: request.GetString("profile_name", ""),
	})
	if err != nil {
		return toolError("Failed to create space", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\nSpace ID: %s", out.Message, out.Space.ID)), nil
}

func (s *Server) handleListSpaces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.service.ListSpaces(ctx, request.GetString("profile_name", ""))
	if err != nil {
		return toolError("Failed to list spaces", err), nil
	}
	return mcp.NewToolResultText(formatSpaces(out)), nil
}

func (s *Server) handleCreateObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := CreateObjectInput{
		SpaceID:     request.GetString("space_id", ""),
		TypeID:      request.GetString("type_id", ""),
		Name:        request.GetString("name", ""),
		Icon:        request.GetString("icon", ""),
		ProfileName: request.GetString("profile_name", ""),
	}
	if raw, ok := request.GetArguments()["fields"]; ok && raw != nil {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("fields must be an object"), nil
		}
		in.Fields = fields
	}

	out, err := s.service.CreateObject(ctx, in)
	if err != nil {
		return toolError("Failed to create object", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\nObject ID: %s", out.Message, out.Object.ID)), nil
}

func (s *Server) handleSearchGlobal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	out, err := s.service.SearchGlobal(ctx, SearchGlobalInput{
		Query:       query,
		SpaceID:     request.GetString("space_id", ""),
		TypeID:      request.GetString("type_id", ""),
		Limit:       request.GetInt("limit", 0),
		ProfileName: request.GetString("profile_name", ""),
	})
	if err != nil {
		return toolError("Search failed", err), nil
	}
	return mcp.NewToolResultText(formatSearch(out)), nil
}

func (s *Server) handleGetGraphStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.service.GraphStats(ctx, request.GetString("profile_name", ""))
	if err != nil {
		return toolError("Failed to get graph stats", err), nil
	}
	return mcp.NewToolResultText(formatStats(out)), nil
}

func (s *Server) handleEnsureOntology(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spaceID, err := request.RequireString("space_id")
	if err != nil {
		return mcp.NewToolResultError("space_id argument is required"), nil
	}
	raw, err := request.RequireString("manifest_json")
	if err != nil {
		return mcp.NewToolResultError("manifest_json argument is required"), nil
	}
	manifest, err := ontology.Parse([]byte(raw))
	if err != nil {
		return toolError("Error parsing manifest", err), nil
	}

	result, err := s.service.EnsureOntology(ctx, EnsureOntologyInput{
		SpaceID:     spaceID,
		Manifest:    manifest,
		DryRun:      request.GetBool("dry_run", false),
		ProfileName: request.GetString("profile_name", ""),
	})
	if err != nil {
		if reconciler.IsPartialApplication(err) && result != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%v\n\n%s", err, formatOntologyResult(result))), nil
		}
		return toolError("Failed to ensure ontology", err), nil
	}
	return mcp.NewToolResultText(formatOntologyResult(result)), nil
}

func (s *Server) handleDailyBriefing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.service.DailyBriefing(ctx, DailyBriefingInput{
		Hours:       request.GetInt("hours", 0),
		SpaceID:     request.GetString("space_id", ""),
		ProfileName: request.GetString("profile_name", ""),
	})
	if err != nil {
		return toolError("Failed to generate briefing", err), nil
	}
	return mcp.NewToolResultText(out.Summary), nil
}

func (s *Server) handleFleetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses := s.service.FleetStatus(ctx, request.GetString("profile_name", ""))
	if request.GetBool("json", false) {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return toolError("Failed to format fleet status", err), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(formatFleetStatus(statuses)), nil
}

func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}
