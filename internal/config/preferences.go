package config

import (
	"fleetspotter/internal/solver"
	"fleetspotter/internal/spotter"
)

// SolverOptions builds engine options from preferences and limits.
func (c *Config) SolverOptions() (solver.Options, error) {
	mode, err := solver.ParseMode(c.Preferences.Mode)
	if err != nil {
		return solver.Options{}, err
	}
	opts := solver.Options{
		Mode:        mode,
		Collator:    solver.ByteOrder{},
		MaxParallel: c.Limits.MaxParallel,
	}
	if c.Preferences.AlphaCollation == "locale" {
		loc, err := solver.NewLocaleOrder(c.Preferences.Locale)
		if err != nil {
			return solver.Options{}, err
		}
		opts.Collator = loc
	}
	return opts, nil
}

// SpotterPreferences returns the state machine preferences.
func (c *Config) SpotterPreferences() spotter.Preferences {
	return spotter.Preferences{ConfirmSolves: c.Preferences.ConfirmSolves}
}
