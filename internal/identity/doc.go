// Package identity defines the fixed set of fleet profiles and carries the active
// profile of a unit of work through context.Context.
//
// A request selects its profile by deriving a context:
//
//	ctx, id, err := resolver.Set(ctx, "work", sessionID)
//
// Anything downstream (the fleet router, the reconciler) reads it back with
// resolver.Get(ctx), which falls back to the configured default profile. Long-lived
// sessions keep their selection in a Sessions store keyed by session id.
package identity
