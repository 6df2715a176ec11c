package fleet

import (
	"errors"
	"fmt"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept for diagnostics.
const maxErrorBody = 4096

// UnknownProfileError is returned when no client exists for the requested profile,
// either because it is not configured or the router is not initialized.
type UnknownProfileError struct {
	Profile   string
	Available []string
}

// Error implements the error interface.
func (e *UnknownProfileError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no client for profile: %s (router has no clients; was it initialized?)", e.Profile)
	}
	return fmt.Sprintf("no client for profile: %s. Available: %s", e.Profile, strings.Join(e.Available, ", "))
}

// IsUnknownProfile reports whether err is or wraps an UnknownProfileError.
func IsUnknownProfile(err error) bool {
	var target *UnknownProfileError
	return errors.As(err, &target)
}

// RemoteError is a non-2xx response from a fleet member. It is never retried.
type RemoteError struct {
	Profile    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s on profile %s failed with status %d", e.Method, e.Path, e.Profile, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsRemoteError reports whether err is or wraps a RemoteError.
func IsRemoteError(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a RemoteError with status 404.
func IsNotFound(err error) bool {
	var target *RemoteError
	return errors.As(err, &target) && target.StatusCode == 404
}

// RemoteUnavailableError is returned once the retry budget for transient transport
// failures is exhausted.
type RemoteUnavailableError struct {
	Profile  string
	Method   string
	Path     string
	Attempts int
	Kind     TransportErrorType
	Err      error
}

// Error implements the error interface.
func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("profile %s unavailable after %d attempts (%s %s): %s: %v",
		e.Profile, e.Attempts, e.Method, e.Path, e.Kind, e.Err)
}

// Unwrap returns the last transport error.
func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// IsRemoteUnavailable reports whether err is or wraps a RemoteUnavailableError.
func IsRemoteUnavailable(err error) bool {
	var target *RemoteUnavailableError
	return errors.As(err, &target)
}
