package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/overlay-home")
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1:19823", cfg.Bridge.ListenAddr)
	assert.Equal(t, "/tmp/overlay-home/data", cfg.DataDir)
	assert.Equal(t, "/tmp/overlay-home/data/overlay.db", cfg.DBPath)
	assert.Equal(t, 10*time.Second, cfg.Bridge.WriteTimeout)
	assert.False(t, cfg.Bridge.Exclusive)
	assert.True(t, cfg.Window.Glass)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Bridge, cfg.Bridge)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:19823", cfg.Bridge.ListenAddr)
}

func TestLoad_OverridesAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OVERLAY_TEST_ORIGIN", "http://localhost:5173")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bridge:
  listen_addr: 127.0.0.1:29000
  exclusive: true
  allowed_origins: ["${OVERLAY_TEST_ORIGIN}"]
  write_timeout: 3s
window:
  glass: false
log:
  level: debug
  file: logs/o.log
db_path: ""
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:29000", cfg.Bridge.ListenAddr)
	assert.True(t, cfg.Bridge.Exclusive)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Bridge.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Bridge.WriteTimeout)
	assert.Equal(t, int64(16<<20), cfg.Bridge.MaxMessageBytes)
	assert.False(t, cfg.Window.Glass)
	assert.Equal(t, 420, cfg.Window.Width)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "logs", "o.log"), cfg.Log.File)
	assert.Empty(t, cfg.DBPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"listen addr":   func(c *Config) { c.Bridge.ListenAddr = "19823" },
		"negative max":  func(c *Config) { c.Bridge.MaxMessageBytes = -1 },
		"negative wait": func(c *Config) { c.Bridge.WriteTimeout = -time.Second },
		"level":         func(c *Config) { c.Log.Level = "loud" },
		"window":        func(c *Config) { c.Window.Width = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DBPath = filepath.Join(dir, "db", "overlay.db")
	cfg.Log.File = filepath.Join(dir, "logs", "overlay.log")

	require.NoError(t, cfg.EnsureDirs())
	for _, d := range []string{"data", "db", "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
