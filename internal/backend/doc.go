// Package backend is a typed client for the fleet members' JSON API: spaces,
// relations, object types, objects, search and statistics. Field names on the wire
// are the backend's mixed-case names.
package backend
