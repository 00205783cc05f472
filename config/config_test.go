package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: anthropic
model: claude-3-5-sonnet-latest
database_url: postgres://localhost/chat
sandbox:
  url: http://localhost:8000
max_turns: 4
log:
  level: debug
`), 0o600))

	cfg, err := load(path, env(map[string]string{"ANALYST_MAX_TURNS": "6"}))
	require.NoError(t, err)

	want := Default()
	want.Provider = ProviderAnthropic
	want.Model = "claude-3-5-sonnet-latest"
	want.DatabaseURL = "postgres://localhost/chat"
	want.Sandbox.URL = "http://localhost:8000"
	want.MaxTurns = 6 // environment wins over the file
	want.Log.Level = "debug"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_turns: ["), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config yaml")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"ANALYST_PROVIDER":      "anthropic",
		"ANALYST_MODEL":         "m",
		"ANALYST_DATABASE_URL":  "postgres://db",
		"ANALYST_SANDBOX_URL":   "http://sb",
		"ANALYST_SANDBOX_TOKEN": "tok",
		"ANALYST_MAX_TURNS":     "0",
		"ANALYST_ARTIFACT_DIR":  "/tmp/art",
		"ANALYST_LOG_LEVEL":     "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, "postgres://db", cfg.DatabaseURL)
	assert.Equal(t, Sandbox{URL: "http://sb", Token: "tok", DataDir: "/home/user/data"}, cfg.Sandbox)
	assert.Equal(t, 0, cfg.MaxTurns)
	assert.Equal(t, "/tmp/art", cfg.ArtifactDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnv_InvalidMaxTurns(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{"ANALYST_MAX_TURNS": "many"}))
	assert.ErrorContains(t, err, "ANALYST_MAX_TURNS")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url is required")
	assert.Contains(t, err.Error(), "sandbox.url is required")

	cfg.DatabaseURL = "postgres://db"
	assert.NoError(t, cfg.Validate(false))

	cfg.Provider = "llama"
	cfg.MaxTurns = -1
	err = cfg.Validate(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "llama"`)
	assert.Contains(t, err.Error(), "max_turns")
}
