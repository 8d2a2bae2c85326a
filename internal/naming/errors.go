package naming

import "errors"

var (
	// ErrUnknownAlgorithm indicates a hash token names an unsupported hash function
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
	// ErrUnknownDigest indicates a hash token names an unsupported digest encoding
	ErrUnknownDigest = errors.New("unknown hash digest")
	// ErrInvalidLength indicates a hash token length is not a positive integer
	ErrInvalidLength = errors.New("invalid hash length")
)
