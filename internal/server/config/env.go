package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays cfg with the AUTHKEEPER_* variables that are set.
// Unset variables leave the current value untouched. Durations use
// time.ParseDuration syntax ("15m"). Panics on malformed values.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}
}
