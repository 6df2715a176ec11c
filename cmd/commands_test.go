package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knowledgecore/internal/backend/backendtest"
	"knowledgecore/internal/cli"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/reconciler"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearFleetEnv keeps the developer's environment out of the loaded settings.
func clearFleetEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FLEET_PERSONAL_URL", "FLEET_WORK_URL", "FLEET_RESEARCH_URL",
		"MNEMONIC_PERSONAL", "MNEMONIC_WORK", "MNEMONIC_RESEARCH",
		"DEFAULT_PROFILE", "ANYTYPE_MAX_RETRIES", "ANYTYPE_BATCH_DELAY_MS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// writeConfig writes a config.yaml pointing every profile at the given URLs.
func writeConfig(t *testing.T, personal, work, research string) string {
	t.Helper()
	clearFleetEnv(t)

	dir := t.TempDir()
	data := fmt.Sprintf(`defaultProfile: personal
fleet:
  personal:
    url: %s
  work:
    url: %s
    credential: "abandon ability able about"
  research:
    url: %s
backend:
  timeoutMs: 2000
  connectTimeoutMs: 500
  maxRetries: 1
  retryDelayMs: 1
  batchDelayMs: 0
`, personal, work, research)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0o600))
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	dir := writeConfig(t, "http://p.local:1", "http://w.local:2", "http://r.local:3")

	out, err := execute(t, newProfilesCmd(), "--config-path", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "personal")
	assert.Contains(t, out, "http://w.local:2")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "abandon")

	out, err = execute(t, newProfilesCmd(), "--config-path", dir, "-o", "json")
	require.NoError(t, err)
	var profiles []cli.ProfileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	require.Len(t, profiles, 3)
	assert.True(t, profiles[0].Default)
	assert.Equal(t, "-", profiles[0].Credential)
}

func TestProfilesCommand_InvalidOutput(t *testing.T) {
	dir := writeConfig(t, "http://p.local:1", "http://w.local:2", "http://r.local:3")

	_, err := execute(t, newProfilesCmd(), "--config-path", dir, "-o", "xml")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	srv := backendtest.NewServer(t)
	dir := writeConfig(t, srv.URL, srv.URL, srv.URL)

	out, err := execute(t, newCheckCmd(), "--config-path", dir, "-o", "json")
	require.NoError(t, err)

	var statuses map[string]fleet.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 3)
	for name, status := range statuses {
		assert.True(t, status.Healthy(), name)
	}

	out, err = execute(t, newCheckCmd(), "--config-path", dir, "--profile", "work", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "work")
	assert.NotContains(t, out, "research")
}

func TestCheckCommand_UnhealthyMemberFails(t *testing.T) {
	srv := backendtest.NewServer(t)
	dir := writeConfig(t, srv.URL, srv.URL, "http://127.0.0.1:1")

	out, err := execute(t, newCheckCmd(), "--config-path", dir, "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 fleet members unhealthy")
	assert.Equal(t, cli.ExitCodeError, cli.ExitCode(err))

	var statuses map[string]fleet.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	assert.True(t, statuses["personal"].Healthy())
	assert.False(t, statuses["research"].Healthy())
}

const crmManifest = `name: CRM
relations:
  - name: Email
    format: email
types:
  - name: Contact
    relations: [Email]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEnsureCommand(t *testing.T) {
	srv := backendtest.NewServer(t)
	space := srv.AddSpace("CRM")
	dir := writeConfig(t, srv.URL, srv.URL, srv.URL)
	manifest := writeManifest(t, crmManifest)

	out, err := execute(t, newEnsureCmd(), manifest, "--space", space, "--config-path", dir, "--dry-run", "-o", "json")
	require.NoError(t, err)
	var result reconciler.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"Email"}, result.Diff.MissingRelations)
	assert.Empty(t, srv.Relations(space))

	out, err = execute(t, newEnsureCmd(), manifest, "--space", space, "--config-path", dir, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Created 1 relations and 1 types")
	assert.Len(t, srv.Relations(space), 1)
	assert.Len(t, srv.Types(space), 1)

	out, err = execute(t, newEnsureCmd(), manifest, "--space", space, "--config-path", dir, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped_relations")
	assert.Contains(t, out, "- Email")
	assert.Len(t, srv.Relations(space), 1)
}

func TestEnsureCommand_Failures(t *testing.T) {
	srv := backendtest.NewServer(t)
	space := srv.AddSpace("CRM")
	dir := writeConfig(t, srv.URL, srv.URL, srv.URL)

	_, err := execute(t, newEnsureCmd(), writeManifest(t, crmManifest), "--config-path", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--space")

	_, err = execute(t, newEnsureCmd(), writeManifest(t, "name: ''\nrelations: [{name: ''}]\n"), "--space", space, "--config-path", dir)
	require.Error(t, err)
	assert.Contains(t, cli.FormatError(err), "Nothing was sent")
	assert.Empty(t, srv.Requests())

	_, err = execute(t, newEnsureCmd(), writeManifest(t, crmManifest), "--space", space, "--config-path", dir, "--profile", "finance")
	require.Error(t, err)
	assert.Equal(t, cli.ExitCodeConfig, cli.ExitCode(err))

	srv.FailCreate("types", 0, 500)
	out, err := execute(t, newEnsureCmd(), writeManifest(t, crmManifest), "--space", space, "--config-path", dir, "-q")
	require.Error(t, err)
	assert.True(t, reconciler.IsPartialApplication(err))
	assert.Equal(t, cli.ExitCodeError, cli.ExitCode(err))
	assert.True(t, strings.Contains(out, "Email"), out)
}
