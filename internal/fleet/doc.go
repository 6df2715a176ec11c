// Package fleet routes requests to the fleet of identity-scoped backends.
//
// A Router owns one pooled HTTP client per configured profile, created by Init and
// released by Close. Each request goes to the profile named by an explicit override
// or, failing that, the identity carried in the request context:
//
//	router := fleet.New(settings, resolver)
//	if err := router.Init(ctx); err != nil { ... }
//	defer router.Close()
//
//	resp, err := router.Get(ctx, "/v1/spaces", "")
//
// Connection failures and timeouts are retried with exponential backoff; any
// received HTTP error status is returned at once as a *RemoteError.
package fleet
