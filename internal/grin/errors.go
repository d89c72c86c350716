package grin

import "errors"

// Sentinel errors. Backends wrap these with context; test with errors.Is.
var (
	ErrNotFound     = errors.New("grin: not found")
	ErrUnsupported  = errors.New("grin: feature not enabled")
	ErrTypeMismatch = errors.New("grin: type mismatch")
	ErrNullValue    = errors.New("grin: value not set")
	ErrDuplicate    = errors.New("grin: duplicate")
	ErrClosed       = errors.New("grin: graph closed")
)
