package app

import (
	"testing"

	"knowledgecore/internal/config"
	"knowledgecore/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeServices(t *testing.T) {
	settings := config.DefaultSettings()
	settings.DefaultProfile = "work"
	settings.Gateway.Host = "127.0.0.1"
	settings.Gateway.Port = 9123

	services, err := InitializeServices(NewConfig(false, false, ""), settings)
	require.NoError(t, err)

	assert.NotNil(t, services.Router)
	assert.NotNil(t, services.Engine)
	assert.NotNil(t, services.Service)
	assert.NotNil(t, services.MCP)
	assert.NotNil(t, services.Gateway)
	assert.Equal(t, identity.Work, services.Resolver.Default())
	assert.Equal(t, "127.0.0.1:9123", services.GatewayAddr)

	// No client exists before the router is initialized.
	assert.Empty(t, services.Router.Profiles())
}

func TestInitializeServices_StdioHasNoGateway(t *testing.T) {
	services, err := InitializeServices(NewConfig(false, true, ""), config.DefaultSettings())
	require.NoError(t, err)
	assert.Nil(t, services.Gateway)
	assert.NotNil(t, services.MCP)
}

func TestInitializeServices_InvalidDefaultProfile(t *testing.T) {
	settings := config.DefaultSettings()
	settings.DefaultProfile = "finance"

	_, err := InitializeServices(NewConfig(false, false, ""), settings)
	require.Error(t, err)
	assert.True(t, identity.IsInvalidProfile(err))
}
