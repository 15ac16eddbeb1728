package training

import "errors"

// Domain-specific errors for the training manager.
var (
	// ErrInvalidMode is returned for an unknown operating mode.
	ErrInvalidMode = errors.New("training: invalid mode")

	// ErrUnsupportedEncoding is returned for an unknown snapshot encoding.
	ErrUnsupportedEncoding = errors.New("training: unsupported encoding")

	// ErrUnsupportedVersion is returned when importing a snapshot from a newer format.
	ErrUnsupportedVersion = errors.New("training: unsupported snapshot version")

	// ErrStateNotFound is returned when no persisted state exists.
	ErrStateNotFound = errors.New("training: state not found")
)
