package fleet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a fully read, successful response from a fleet member.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Profile is the fleet member that answered.
	Profile string
	// RequestID is the X-Request-ID sent with the request.
	RequestID string
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response from profile %s: %w", r.Profile, err)
	}
	return nil
}

// RequestOption customizes a single request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	query   map[string]string
	body    interface{}
	hasBody bool
}

// WithQuery adds a query parameter. Empty values are skipped.
func WithQuery(key, value string) RequestOption {
	return func(c *requestConfig) {
		if value == "" {
			return
		}
		if c.query == nil {
			c.query = make(map[string]string)
		}
		c.query[key] = value
	}
}

// WithJSONBody sends v encoded as JSON.
func WithJSONBody(v interface{}) RequestOption {
	return func(c *requestConfig) {
		c.body = v
		c.hasBody = true
	}
}
