package app

import "errors"

// DefaultOutputDir is where bundles go when no output directory is given.
const DefaultOutputDir = "dist"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DescriptorPath string // .hcl file or directory
	OutputDir      string
	EnvFile        string // optional dotenv file exposed as env.*
	Vars           map[string]string

	DryRun bool
	Strict bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DescriptorPath == "" {
		return nil, errors.New("DescriptorPath is a required configuration field and cannot be empty")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	return &cfg, nil
}
