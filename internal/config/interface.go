package config

import "context"

// Loader is the interface for a format-specific descriptor loader.
type Loader interface {
	// Load reads the descriptor found at path (a file or a directory of
	// descriptor files), evaluates it with vars, and returns the model.
	Load(ctx context.Context, path string, vars Variables) (*Model, error)
}

// Variables holds the values a descriptor can reference while it is being
// evaluated.
type Variables struct {
	// Overrides replace the defaults of declared variables.
	Overrides map[string]string
	// Env is exposed to the descriptor as env.NAME.
	Env map[string]string
}
