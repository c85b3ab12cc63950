package config

import "fmt"

// LimitsConfig bounds solver resource use.
type LimitsConfig struct {
	MaxParallel int `yaml:"max_parallel"` // candidate matching workers
}

// ValidateLimits checks that limits are within acceptable ranges.
func (c *Config) ValidateLimits() error {
	if c.Limits.MaxParallel < 1 {
		return fmt.Errorf("limits.max_parallel must be >= 1")
	}
	return nil
}
