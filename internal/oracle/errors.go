package oracle

import "errors"

// Sentinel errors for oracle operations.
var (
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrMissingCredential = errors.New("missing credential")
	ErrEmptyResponse     = errors.New("empty response")
)
