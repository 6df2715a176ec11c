package app

import (
	"fmt"
	"net"
	"strconv"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/config"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/mcpserver"
	"knowledgecore/internal/reconciler"
	"knowledgecore/internal/server"
	"knowledgecore/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// The components are built in dependency order:
//  1. Identity resolver (default profile)
//  2. Fleet router (one client per profile, prepared on Init)
//  3. Reconciliation engine over the backend client
//  4. Service shared by the MCP tools and the REST API
//  5. MCP server and HTTP gateway
type Services struct {
	Settings config.Settings
	Resolver *identity.Resolver
	Router   *fleet.Router
	Engine   *reconciler.Engine
	Service  *mcpserver.Service
	MCP      *mcpserver.Server
	Gateway  *server.Gateway

	// GatewayAddr is the host:port the gateway listens on.
	GatewayAddr string
}

// InitializeServices creates every component for settings. Nothing connects to the
// fleet until the router is initialized.
func InitializeServices(cfg *Config, settings config.Settings) (*Services, error) {
	resolver, err := identity.NewResolver(settings.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity resolver: %w", err)
	}

	router := fleet.New(settings, resolver)

	engine := reconciler.NewEngine(backend.NewClient(router),
		reconciler.WithBatchDelay(settings.Backend.BatchDelay()),
		reconciler.WithProfileResolver(router),
	)

	service := mcpserver.NewService(router, resolver, engine)
	mcp := mcpserver.NewServer(service, cfg.Version)

	services := &Services{
		Settings:    settings,
		Resolver:    resolver,
		Router:      router,
		Engine:      engine,
		Service:     service,
		MCP:         mcp,
		GatewayAddr: net.JoinHostPort(settings.Gateway.Host, strconv.Itoa(settings.Gateway.Port)),
	}
	if !cfg.Stdio {
		services.Gateway = server.NewGateway(mcp, cfg.Version)
	}

	logging.Debug("Bootstrap", "Services initialized (default profile %s, %d fleet members)",
		resolver.Default(), len(settings.Profiles()))
	return services, nil
}
