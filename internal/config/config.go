// Package config loads index configuration from the environment.
//
// Every setting has a default from index.DefaultConfig, so a bare
// `agentdb serve` works from the repository root with no setup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"agentdb/internal/index"
)

// Environment variable names.
const (
	EnvRoot             = "AGENTDB_ROOT"
	EnvStore            = "AGENTDB_STORE"
	EnvMaxMetadataBytes = "AGENTDB_MAX_METADATA_BYTES"
	EnvMaxNestingDepth  = "AGENTDB_MAX_NESTING_DEPTH"
	EnvMaxFocusDepth    = "AGENTDB_MAX_FOCUS_DEPTH"
)

// Load builds an index.Config from the environment on top of the defaults.
func Load() (index.Config, error) {
	cfg := index.DefaultConfig()

	if v := os.Getenv(EnvRoot); v != "" {
		cfg.RootDir = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		cfg.StorePath = v
	}

	if err := intEnv(EnvMaxMetadataBytes, &cfg.MaxMetadataBytes); err != nil {
		return cfg, err
	}
	if err := intEnv(EnvMaxNestingDepth, &cfg.MaxNestingDepth); err != nil {
		return cfg, err
	}
	if err := intEnv(EnvMaxFocusDepth, &cfg.MaxFocusDepth); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// intEnv overwrites *dst when the variable is set to a positive integer.
func intEnv(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	if n <= 0 {
		return fmt.Errorf("config: %s must be positive, got %d", name, n)
	}
	*dst = n
	return nil
}
