package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath points at the pipeline .hcl file.
	ConfigPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// Workers overrides the pipeline file's worker count when > 0.
	Workers int
}

// NewConfig validates the raw config values.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
