package store

import "errors"

// ErrInvalidSlot and ErrSingleWriterViolation are the structural runtime
// errors spec.md §7 says abort the current frame.
var (
	ErrInvalidSlot           = errors.New("invalid value slot")
	ErrSingleWriterViolation = errors.New("single-writer violation")
	ErrStateBufferRange      = errors.New("state buffer initial const out of range")
)
