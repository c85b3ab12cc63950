package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = ".spotter/config.yaml"

// Config holds all spotter configuration.
type Config struct {
	Preferences   PreferencesConfig   `yaml:"preferences"`
	Memory        MemoryConfig        `yaml:"memory"`
	Collaboration CollaborationConfig `yaml:"collaboration"`
	Limits        LimitsConfig        `yaml:"limits"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// PreferencesConfig holds solver and display preferences.
type PreferencesConfig struct {
	// ConfirmSolves keeps submitted solves unconfirmed until confirmed.
	ConfirmSolves bool `yaml:"confirm_solves"`
	// Mode is solo, collaboration or combo.
	Mode string `yaml:"mode"`
	// AlphaCollation is byte or locale.
	AlphaCollation string `yaml:"alpha_collation"`
	// Locale is a BCP 47 tag used when AlphaCollation is locale.
	Locale string `yaml:"locale"`

	HideAlphaExceptions   bool `yaml:"hide_alpha_exceptions"`
	HideOneHandExceptions bool `yaml:"hide_one_hand_exceptions"`
	HideNonOptimal        bool `yaml:"hide_non_optimal"`
}

// MemoryConfig configures persistence.
type MemoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CollaborationConfig configures room sync.
type CollaborationConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Room    string `yaml:"room"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Preferences: PreferencesConfig{
			ConfirmSolves:  true,
			Mode:           "solo",
			AlphaCollation: "byte",
			Locale:         "en",
		},
		Memory: MemoryConfig{
			DatabasePath: ".spotter/spotter.db",
		},
		Collaboration: CollaborationConfig{
			BaseURL: "http://localhost:8090",
			Timeout: "10s",
		},
		Limits: LimitsConfig{
			MaxParallel: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file over the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("SPOTTER_DB"); path != "" {
		c.Memory.DatabasePath = path
	}
	if url := os.Getenv("SPOTTER_COLLAB_URL"); url != "" {
		c.Collaboration.BaseURL = url
		c.Collaboration.Enabled = true
	}
	if room := os.Getenv("SPOTTER_ROOM"); room != "" {
		c.Collaboration.Room = room
	}
	if level := os.Getenv("SPOTTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetCollabTimeout returns the collaboration timeout as a duration.
func (c *Config) GetCollabTimeout() time.Duration {
	d, err := time.ParseDuration(c.Collaboration.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ValidModes lists the engine modes.
var ValidModes = []string{"solo", "collaboration", "combo"}

// ValidCollations lists the alpha rule orderings.
var ValidCollations = []string{"byte", "locale"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidModes, c.Preferences.Mode) {
		return fmt.Errorf("invalid mode: %s (valid: %v)", c.Preferences.Mode, ValidModes)
	}
	if !contains(ValidCollations, c.Preferences.AlphaCollation) {
		return fmt.Errorf("invalid alpha_collation: %s (valid: %v)", c.Preferences.AlphaCollation, ValidCollations)
	}
	if c.Preferences.AlphaCollation == "locale" {
		if _, err := language.Parse(c.Preferences.Locale); err != nil {
			return fmt.Errorf("invalid locale %q: %w", c.Preferences.Locale, err)
		}
	}
	if c.Memory.DatabasePath == "" {
		return fmt.Errorf("memory.database_path must be set")
	}
	if c.Collaboration.Enabled && c.Collaboration.BaseURL == "" {
		return fmt.Errorf("collaboration.base_url must be set when collaboration is enabled")
	}
	if c.Collaboration.Timeout != "" {
		if _, err := time.ParseDuration(c.Collaboration.Timeout); err != nil {
			return fmt.Errorf("invalid collaboration.timeout: %w", err)
		}
	}
	return c.ValidateLimits()
}

// IsCollaborationEnabled reports whether room sync should run.
func (c *Config) IsCollaborationEnabled() bool {
	return c.Collaboration.Enabled && c.Collaboration.Room != ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
