package compat

import "errors"

// Domain-specific errors for compatibility scoring.
var (
	// ErrUnknownFactor is returned when a factor name is not one of the six weights.
	ErrUnknownFactor = errors.New("compat: unknown factor")
)
