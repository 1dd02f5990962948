package config

import "errors"

// Sentinel errors for configuration.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrEmptyRules    = errors.New("rules text is empty")
)
