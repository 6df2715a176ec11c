package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"knowledgecore/internal/config"
	"knowledgecore/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogs(t *testing.T) {
	t.Helper()
	previous := logOutput
	logOutput = io.Discard
	t.Cleanup(func() { logOutput = previous })
}

func TestNewApplication_WithSettings(t *testing.T) {
	quietLogs(t)
	settings := config.DefaultSettings()

	cfg := NewConfig(true, false, "")
	cfg.Settings = &settings

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, application.Services())
	assert.NotNil(t, application.Services().Gateway)
	assert.Equal(t, identity.Personal, application.Services().Resolver.Default())
}

func TestNewApplication_LoadsConfigFile(t *testing.T) {
	quietLogs(t)
	for _, key := range []string{"DEFAULT_PROFILE", "GATEWAY_PORT", "FLEET_WORK_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
defaultProfile: research
gateway:
  host: 127.0.0.1
  port: 9001
`), 0o600))

	application, err := NewApplication(NewConfig(false, false, dir))
	require.NoError(t, err)
	assert.Equal(t, identity.Research, application.Services().Resolver.Default())
	assert.Equal(t, "127.0.0.1:9001", application.Services().GatewayAddr)
}

func TestNewApplication_InvalidConfigFile(t *testing.T) {
	quietLogs(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("gateway: [not a map"), 0o600))

	_, err := NewApplication(NewConfig(false, false, dir))
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}
