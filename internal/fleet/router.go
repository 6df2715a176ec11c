package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"knowledgecore/internal/config"
	"knowledgecore/internal/identity"
	"knowledgecore/pkg/logging"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request correlation id to the fleet member.
const RequestIDHeader = "X-Request-ID"

// ProfileClient is the long-lived transport of one fleet member. It is safe for
// concurrent use and is only created or closed by the router's Init and Close.
type ProfileClient struct {
	Profile identity.Name
	BaseURL string

	httpClient *http.Client
	transport  *http.Transport
}

// Router dispatches requests to the fleet member selected by the caller's identity.
type Router struct {
	settings config.Settings
	resolver *identity.Resolver
	policy   RetryPolicy

	mu      sync.RWMutex
	clients map[identity.Name]*ProfileClient
}

// Option configures the router.
type Option func(*Router)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Router) {
		r.policy = p
	}
}

// New creates a router for the profiles in settings. No connections are prepared
// until Init is called.
func New(settings config.Settings, resolver *identity.Resolver, opts ...Option) *Router {
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = settings.Backend.MaxRetries
	if d := settings.Backend.RetryDelay(); d > 0 {
		policy.InitialInterval = d
	}

	r := &Router{
		settings: settings,
		resolver: resolver,
		policy:   policy,
		clients:  make(map[identity.Name]*ProfileClient),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init creates one client per configured profile. Calling it again is a no-op.
func (r *Router) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) > 0 {
		return nil
	}

	clients := make(map[identity.Name]*ProfileClient)
	for _, p := range r.settings.Profiles() {
		if _, err := url.Parse(p.URL); err != nil {
			return fmt.Errorf("invalid URL for profile %s: %w", p.Name, err)
		}
		clients[p.Name] = r.newProfileClient(p)
		logging.Debug("FleetRouter", "Initialized client for profile %s at %s", p.Name, p.URL)
	}
	r.clients = clients
	logging.Info("FleetRouter", "Fleet router initialized with %d profiles", len(clients))
	return nil
}

func (r *Router) newProfileClient(p config.Profile) *ProfileClient {
	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = (&net.Dialer{
		Timeout:   r.settings.Backend.ConnectTimeout(),
		KeepAlive: 30 * time.Second,
	}).DialContext

	var rt http.RoundTripper = transport
	if !p.Credential.IsEmpty() {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: p.Credential.Value(),
				TokenType:   "Bearer",
			}),
			Base: transport,
		}
	}

	return &ProfileClient{
		Profile: p.Name,
		BaseURL: strings.TrimSuffix(p.URL, "/"),
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   r.settings.Backend.Timeout(),
		},
		transport: transport,
	}
}

// Close drops every client and releases idle connections. Calling it again is a
// no-op.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, c := range r.clients {
		c.transport.CloseIdleConnections()
		logging.Debug("FleetRouter", "Closed client for profile %s", name)
	}
	r.clients = make(map[identity.Name]*ProfileClient)
}

// Profiles returns the profiles that currently have a client, in fixed order.
func (r *Router) Profiles() []identity.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []identity.Name
	for _, name := range identity.Names() {
		if _, ok := r.clients[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ResolveProfile picks override when given, otherwise the identity carried by ctx.
func (r *Router) ResolveProfile(ctx context.Context, override string) identity.Name {
	if override != "" {
		return identity.Name(strings.ToLower(strings.TrimSpace(override)))
	}
	return r.resolver.Get(ctx).Profile
}

// ResolveClient returns the client for override, or for the identity in ctx.
func (r *Router) ResolveClient(ctx context.Context, override string) (*ProfileClient, error) {
	name := r.ResolveProfile(ctx, override)

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	if !ok {
		available := make([]string, 0, len(r.clients))
		for n := range r.clients {
			available = append(available, string(n))
		}
		sort.Strings(available)
		return nil, &UnknownProfileError{Profile: string(name), Available: available}
	}
	return c, nil
}

// Request sends method path to the resolved fleet member. Transient transport
// failures are retried per the router's policy; once exhausted the result is a
// *RemoteUnavailableError. A response with status >= 400 is returned immediately as
// a *RemoteError.
func (r *Router) Request(ctx context.Context, method, path, override string, opts ...RequestOption) (*Response, error) {
	client, err := r.ResolveClient(ctx, override)
	if err != nil {
		return nil, err
	}

	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var body []byte
	if cfg.hasBody {
		body, err = json.Marshal(cfg.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s %s: %w", method, path, err)
		}
	}

	profile := string(client.Profile)
	requestID := uuid.NewString()
	logging.Debug("FleetRouter", "Fleet request %s %s profile=%s request_id=%s", method, path, profile, requestID)

	start := time.Now()
	// Only a RemoteError comes back with a response, and it is never retried.
	status := 0
	resp, attempts, err := Do(ctx, r.policy, func(attempt int) (*Response, error) {
		resp, err := client.do(ctx, method, path, cfg, body, requestID)
		if resp != nil {
			status = resp.StatusCode
		}
		return resp, err
	}, func(err error, wait time.Duration) {
		recordRetry(profile)
		logging.Warn("FleetRouter", "Transient failure on profile %s (%s %s), retrying in %s: %v", profile, method, path, wait, err)
	})

	recordRequest(profile, method, status, time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if IsTransient(err) {
			return nil, &RemoteUnavailableError{
				Profile:  profile,
				Method:   method,
				Path:     path,
				Attempts: attempts,
				Kind:     ClassifyTransportError(err),
				Err:      err,
			}
		}
		return nil, err
	}

	logging.Debug("FleetRouter", "Fleet response %d profile=%s request_id=%s", resp.StatusCode, profile, requestID)
	return resp, nil
}

// do performs a single attempt.
func (c *ProfileClient) do(ctx context.Context, method, path string, cfg *requestConfig, body []byte, requestID string) (*Response, error) {
	target := c.BaseURL + path
	if len(cfg.query) > 0 {
		q := url.Values{}
		for k, v := range cfg.query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return &Response{StatusCode: httpResp.StatusCode, Profile: string(c.Profile), RequestID: requestID}, &RemoteError{
			Profile:    string(c.Profile),
			Method:     method,
			Path:       path,
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Profile:    string(c.Profile),
		RequestID:  requestID,
	}, nil
}

// Get sends a GET request.
func (r *Router) Get(ctx context.Context, path, override string, opts ...RequestOption) (*Response, error) {
	return r.Request(ctx, http.MethodGet, path, override, opts...)
}

// Post sends a POST request.
func (r *Router) Post(ctx context.Context, path, override string, opts ...RequestOption) (*Response, error) {
	return r.Request(ctx, http.MethodPost, path, override, opts...)
}
