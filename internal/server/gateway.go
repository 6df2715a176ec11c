package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"knowledgecore/internal/fleet"
	"knowledgecore/internal/mcpserver"
	"knowledgecore/internal/reconciler"
	"knowledgecore/pkg/logging"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses. Reconciling
	// a large manifest can take a while, so it is generous.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultShutdownTimeout bounds the graceful shutdown of the listener.
	DefaultShutdownTimeout = 5 * time.Second

	// SessionHeader selects the REST caller's session.
	SessionHeader = "X-Session-ID"
)

// Gateway serves the health, metrics, MCP and REST endpoints.
type Gateway struct {
	mcp     *mcpserver.Server
	service *mcpserver.Service
	version string

	// fallbackSession keys REST callers without a session header.
	fallbackSession string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// NewGateway creates a gateway over an MCP server and its service.
func NewGateway(mcp *mcpserver.Server, version string) *Gateway {
	fleet.RegisterMetrics()
	reconciler.RegisterMetrics()

	return &Gateway{
		mcp:             mcp,
		service:         mcp.Service(),
		version:         version,
		fallbackSession: uuid.NewString(),
	}
}

// Handler returns the gateway's routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /status", g.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/mcp", g.mcp.HTTPHandler())

	g.registerAPI(mux)

	return withRequestLogging(mux)
}

// Start listens on addr and serves in the background. Use Addr to learn the bound
// address when addr asks for an ephemeral port.
func (g *Gateway) Start(addr string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.httpServer != nil {
		return fmt.Errorf("gateway already started")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g.listener = listener
	g.done = make(chan struct{})
	g.httpServer = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	httpServer := g.httpServer
	done := g.done
	go func() {
		defer close(done)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Gateway", err, "Gateway stopped unexpectedly")
		}
	}()

	logging.Info("Gateway", "Gateway listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests, bounded by
// ctx. Calling it on a gateway that never started is a no-op.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	httpServer := g.httpServer
	done := g.done
	g.httpServer = nil
	g.listener = nil
	g.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	logging.Info("Gateway", "Stopping gateway")
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down gateway: %w", err)
	}
	<-done
	return nil
}

// Run starts the gateway on addr and blocks until ctx is done, then shuts down.
func (g *Gateway) Run(ctx context.Context, addr string) error {
	if err := g.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return g.Shutdown(shutdownCtx)
}

// sessionContext attaches the identity of the REST caller's session.
func (g *Gateway) sessionContext(r *http.Request) context.Context {
	return g.service.SessionContext(r.Context(), g.sessionID(r))
}

func (g *Gateway) sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return g.fallbackSession
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Gateway", "%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
