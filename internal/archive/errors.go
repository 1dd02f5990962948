package archive

import "errors"

// Sentinel errors for archive operations.
var (
	ErrNoBatch      = errors.New("no batch has been run")
	ErrNoTarget     = errors.New("target path not set")
	ErrTargetExists = errors.New("target already exists")
)
