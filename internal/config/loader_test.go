package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"knowledgecore/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEnv replaces the environment lookup for the duration of the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	original := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = original })
}

func TestLoadSettings_Defaults(t *testing.T) {
	withEnv(t, nil)

	settings, err := LoadSettings(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "personal", settings.DefaultProfile)
	assert.Equal(t, "INFO", settings.LogLevel)
	assert.Equal(t, "0.0.0.0", settings.Gateway.Host)
	assert.Equal(t, 8000, settings.Gateway.Port)
	assert.Equal(t, 30*time.Second, settings.Backend.Timeout())
	assert.Equal(t, 10*time.Second, settings.Backend.ConnectTimeout())
	assert.Equal(t, 3, settings.Backend.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, settings.Backend.RetryDelay())
	assert.Equal(t, 50*time.Millisecond, settings.Backend.BatchDelay())

	profiles := settings.Profiles()
	require.Len(t, profiles, 3)
	assert.Equal(t, identity.Personal, profiles[0].Name)
	assert.Equal(t, "http://heart-personal:31009", profiles[0].URL)
	assert.Equal(t, "http://heart-work:31009", profiles[1].URL)
	assert.Equal(t, "http://heart-research:31009", profiles[2].URL)
	assert.True(t, profiles[0].Credential.IsEmpty())
}

func TestLoadSettings_File(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	content := `
defaultProfile: work
logLevel: debug
gateway:
  port: 9000
fleet:
  work:
    url: http://localhost:31010
    credential: correct horse battery staple
  research:
    credential: only-a-credential
backend:
  batchDelayMs: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))

	settings, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "work", settings.DefaultProfile)
	assert.Equal(t, 9000, settings.Gateway.Port)
	assert.Equal(t, "0.0.0.0", settings.Gateway.Host, "unset fields keep defaults")
	assert.Equal(t, 0, settings.Backend.BatchDelayMs)
	assert.Equal(t, 30000, settings.Backend.TimeoutMs)

	work, ok := settings.Profile(identity.Work)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:31010", work.URL)
	assert.Equal(t, "correct horse battery staple", work.Credential.Value())

	research, ok := settings.Profile(identity.Research)
	require.True(t, ok)
	assert.Equal(t, "http://heart-research:31009", research.URL)
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("defaultProfile: work\n"), 0o600))
	withEnv(t, map[string]string{
		"DEFAULT_PROFILE":        "research",
		"FLEET_PERSONAL_URL":     "http://127.0.0.1:9999",
		"MNEMONIC_PERSONAL":      "abandon ability able",
		"GATEWAY_PORT":           "8080",
		"ANYTYPE_MAX_RETRIES":    "5",
		"ANYTYPE_BATCH_DELAY_MS": "10",
		"LOG_LEVEL":              "WARNING",
		"DEBUG":                  "true",
	})

	settings, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "research", settings.DefaultProfile)
	assert.Equal(t, 8080, settings.Gateway.Port)
	assert.Equal(t, 5, settings.Backend.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, settings.Backend.BatchDelay())
	assert.Equal(t, "WARNING", settings.LogLevel)
	assert.True(t, settings.Debug)

	personal, ok := settings.Profile(identity.Personal)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9999", personal.URL)
	assert.Equal(t, "abandon ability able", personal.Credential.Value())
}

func TestLoadSettings_InvalidEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"GATEWAY_PORT":       "eighty",
		"ANYTYPE_TIMEOUT_MS": "soon",
	})

	_, err := LoadSettings("")
	require.Error(t, err)

	var errs *ConfigurationErrorCollection
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, 2, errs.Count())
	for _, e := range errs.Errors {
		assert.Equal(t, "env", e.Source)
	}
	assert.True(t, IsConfigurationError(err))
}

func TestLoadSettings_MalformedFile(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("gateway: [unclosed"), 0o600))

	_, err := LoadSettings(dir)
	require.Error(t, err)

	var errs *ConfigurationErrorCollection
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "parse", errs.Errors[0].ErrorType)
	assert.Contains(t, errs.GetDetailedReport(), "Suggestions")
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Settings)
		wantField string
	}{
		{
			name:      "unknown default profile",
			mutate:    func(s *Settings) { s.DefaultProfile = "holiday" },
			wantField: "defaultProfile",
		},
		{
			name:      "bad log level",
			mutate:    func(s *Settings) { s.LogLevel = "loud" },
			wantField: "logLevel",
		},
		{
			name:      "port out of range",
			mutate:    func(s *Settings) { s.Gateway.Port = 70000 },
			wantField: "gateway.port",
		},
		{
			name:      "unknown fleet member",
			mutate:    func(s *Settings) { s.Fleet["holiday"] = ProfileConfig{URL: "http://x:1"} },
			wantField: "fleet.holiday",
		},
		{
			name:      "non-http url",
			mutate:    func(s *Settings) { s.Fleet["work"] = ProfileConfig{URL: "ftp://heart-work"} },
			wantField: "fleet.work.url",
		},
		{
			name:      "zero timeout",
			mutate:    func(s *Settings) { s.Backend.TimeoutMs = 0 },
			wantField: "backend.timeoutMs",
		},
		{
			name:      "negative batch delay",
			mutate:    func(s *Settings) { s.Backend.BatchDelayMs = -1 },
			wantField: "backend.batchDelayMs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)

			err := s.Validate()
			require.Error(t, err)

			var errs *ConfigurationErrorCollection
			require.ErrorAs(t, err, &errs)
			var fields []string
			for _, e := range errs.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}

	assert.NoError(t, DefaultSettings().Validate())
}

func TestGetDefaultConfigPath(t *testing.T) {
	original := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = original })
	osUserHomeDir = func() (string, error) { return "/home/tester", nil }

	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "knowledgecore"), path)
}
