package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.ReadinessTimeout())
	assert.Equal(t, "127.0.0.1", cfg.RPC.Host)
	assert.False(t, cfg.Home.Keep)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
timeout: 30
home:
  keep: true
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.ReadinessTimeout())
	assert.True(t, cfg.Home.Keep)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Timeout)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("timeout: [oops\n"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestLoad_UnreadableFileFails(t *testing.T) {
	// A directory at the config path makes the read fail with something
	// other than not-exist; that must surface, not load defaults.
	dir := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.Mkdir(dir, 0755))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("timeout: 30\n"), 0644))
	t.Setenv("NEAR_SANDBOX_TIMEOUT", "3")

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ReadinessTimeout())
}

func TestReadinessTimeout_NonNumericFallsBack(t *testing.T) {
	t.Setenv("NEAR_SANDBOX_TIMEOUT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.ReadinessTimeout())
}

func TestSaveTo_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Timeout = 42
	cfg.Bin.Version = "2.6.3"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveTo(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Timeout)
	assert.Equal(t, "2.6.3", loaded.Bin.Version)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/x/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "config.yaml"), expanded)

	same, err := ExpandPath("/etc/near-sandbox.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/near-sandbox.yaml", same)

	empty, err := ExpandPath("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}
