package buildconfig

import "errors"

var (
	// ErrInvalidConfig indicates the configuration failed validation
	ErrInvalidConfig = errors.New("invalid build configuration")
	// ErrNoEntries indicates the configuration declares no entry points
	ErrNoEntries = errors.New("no entry points configured")
)
