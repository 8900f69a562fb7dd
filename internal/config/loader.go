package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Loader loads configuration from environment variables. Tests can set
// Environment to inject a deterministic map instead of the process env.
type Loader struct {
	Environment map[string]string
}

// Load parses EDGESAY_* environment variables into a Config and validates it.
func (l Loader) Load() (Config, error) {
	var cfg Config

	opts := env.Options{}
	if l.Environment != nil {
		opts.Environment = l.Environment
	}
	if err := env.Parse(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
