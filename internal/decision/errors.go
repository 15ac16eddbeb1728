package decision

import "errors"

// Domain-specific errors for decisions.
var (
	// ErrInvalidStyle is returned when a mixing style is not recognised.
	ErrInvalidStyle = errors.New("decision: invalid mixing style")

	// ErrUnknownAction is returned when an action kind is not recognised.
	ErrUnknownAction = errors.New("decision: unknown action")
)
