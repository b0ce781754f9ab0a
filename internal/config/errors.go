// Package config provides configuration types and defaults for rdsweep.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidScorer indicates an unknown scorer name was provided.
	ErrInvalidScorer = errors.New("invalid scorer")

	// ErrInvalidRetention indicates an unknown artifact retention policy.
	ErrInvalidRetention = errors.New("invalid retention policy")

	// ErrEmptyGrid indicates a sweep with no resolutions or no bitrates.
	ErrEmptyGrid = errors.New("empty parameter grid")

	// ErrMissingPath indicates a required path was left empty.
	ErrMissingPath = errors.New("required path missing")

	// ErrInvalidTimeout indicates a negative encode timeout.
	ErrInvalidTimeout = errors.New("invalid encode timeout")
)
