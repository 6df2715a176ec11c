// Package server provides the HTTP gateway in front of the knowledge fleet.
//
// The gateway mounts three surfaces on a single listener:
//
//   - /health and /status for health checks and operators
//   - /metrics exposing the Prometheus registry
//   - /mcp serving the MCP tools over streamable HTTP
//
// A small REST API under /api/v1 offers the same operations as the MCP tools for
// callers that do not speak MCP:
//
//	POST /api/v1/profile/switch       switch the caller's profile
//	GET  /api/v1/profile              describe the caller's profile
//	GET  /api/v1/spaces               list spaces
//	POST /api/v1/spaces               create a space
//	GET  /api/v1/spaces/{id}/objects  list the objects of a space
//	POST /api/v1/objects              create an object
//	GET  /api/v1/search               search objects
//	GET  /api/v1/stats                graph statistics
//	POST /api/v1/ontology/ensure      reconcile a space against a manifest
//	GET  /api/v1/fleet                fleet health
//
// REST callers are told apart by the X-Session-ID header. Callers that omit it share
// one gateway-wide session, so a profile switch without the header affects all of
// them. Every read endpoint also accepts a profile query parameter that overrides
// the session's profile for that request only.
package server
