package plugins

import "errors"

var (
	// ErrOutsideRoot indicates a clean path escapes the project root
	ErrOutsideRoot = errors.New("path must be inside the project root")
	// ErrTemplate indicates the HTML template could not be loaded or rendered
	ErrTemplate = errors.New("html template failed")
	// ErrUnknownCompression indicates a compression algorithm is not supported
	ErrUnknownCompression = errors.New("unknown compression algorithm")
)
