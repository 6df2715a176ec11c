// Package mcpserver exposes the knowledge operations as MCP tools.
//
// Service holds the operations themselves and is shared with the REST API. Server
// registers one mcp-go tool per operation: switch_profile, get_current_profile,
// create_space, list_spaces, create_object, search_global, get_graph_stats,
// ensure_ontology, daily_briefing and fleet_status.
//
// Profile selection is per MCP session. switch_profile records the choice for the
// calling session only, and every other tool runs with that session's identity
// unless the call passes profile_name. Callers without a session share one
// fallback session.
package mcpserver
