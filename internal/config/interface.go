package config

import "context"

// Loader is the interface for a format-specific workflow loader.
type Loader interface {
	// Load reads every workflow file found under paths and merges them into a
	// single model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
