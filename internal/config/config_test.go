package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetspotter/internal/solver"
)

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Preferences.ConfirmSolves)
	assert.Equal(t, "solo", cfg.Preferences.Mode)
	assert.Equal(t, 8, cfg.Limits.MaxParallel)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.IsCollaborationEnabled())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("SPOTTER_DB", "")
	t.Setenv("SPOTTER_COLLAB_URL", "")
	t.Setenv("SPOTTER_ROOM", "")
	t.Setenv("SPOTTER_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Preferences.Mode = "combo"
	cfg.Preferences.HideNonOptimal = true
	cfg.Collaboration.Room = "r1"
	cfg.Logging.Categories = map[string]bool{"store": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("SPOTTER_DB", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preferences:\n  confirm_solves: false\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Preferences.ConfirmSolves)
	assert.Equal(t, "byte", cfg.Preferences.AlphaCollation)
	assert.Equal(t, ".spotter/spotter.db", cfg.Memory.DatabasePath)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "solo", cfg.Preferences.Mode)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preferences: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPOTTER_DB", "/tmp/x.db")
	t.Setenv("SPOTTER_COLLAB_URL", "http://collab:9000")
	t.Setenv("SPOTTER_ROOM", "room-7")
	t.Setenv("SPOTTER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/x.db", cfg.Memory.DatabasePath)
	assert.Equal(t, "http://collab:9000", cfg.Collaboration.BaseURL)
	assert.True(t, cfg.Collaboration.Enabled)
	assert.Equal(t, "room-7", cfg.Collaboration.Room)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.IsCollaborationEnabled())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Preferences.Mode = "chaos" }},
		{"bad collation", func(c *Config) { c.Preferences.AlphaCollation = "random" }},
		{"bad locale", func(c *Config) {
			c.Preferences.AlphaCollation = "locale"
			c.Preferences.Locale = "not a tag!"
		}},
		{"no database", func(c *Config) { c.Memory.DatabasePath = "" }},
		{"collab without url", func(c *Config) {
			c.Collaboration.Enabled = true
			c.Collaboration.BaseURL = ""
		}},
		{"bad timeout", func(c *Config) { c.Collaboration.Timeout = "soon" }},
		{"zero workers", func(c *Config) { c.Limits.MaxParallel = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetCollabTimeout(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.GetCollabTimeout())
	cfg.Collaboration.Timeout = "3s"
	assert.Equal(t, 3*time.Second, cfg.GetCollabTimeout())
	cfg.Collaboration.Timeout = "garbage"
	assert.Equal(t, 10*time.Second, cfg.GetCollabTimeout())
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func TestSolverOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.SolverOptions()
	require.NoError(t, err)
	assert.Equal(t, solver.ModeSolo, opts.Mode)
	assert.Equal(t, "byte", opts.Collator.Name())
	assert.Equal(t, 8, opts.MaxParallel)

	cfg.Preferences.Mode = "collaboration"
	cfg.Preferences.AlphaCollation = "locale"
	cfg.Preferences.Locale = "de"
	opts, err = cfg.SolverOptions()
	require.NoError(t, err)
	assert.Equal(t, solver.ModeCollaboration, opts.Mode)
	assert.Equal(t, "locale:de", opts.Collator.Name())

	assert.True(t, cfg.SpotterPreferences().ConfirmSolves)
}

func TestLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Level: "debug", DebugMode: true, Categories: map[string]bool{"store": false}}
	assert.False(t, lc.IsCategoryEnabled("store"))
	assert.True(t, lc.IsCategoryEnabled("solver"))

	o := lc.Options("/var/log")
	assert.Equal(t, "debug", o.Level)
	assert.Equal(t, "/var/log", o.Dir)
	assert.True(t, o.DebugMode)
}
