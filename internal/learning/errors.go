package learning

import "errors"

// Domain-specific errors for the learning system.
var (
	// ErrEmptyAction is returned when an event has no action.
	ErrEmptyAction = errors.New("learning: event action is required")

	// ErrSnapshotNotFound is returned when no persisted snapshot exists.
	ErrSnapshotNotFound = errors.New("learning: snapshot not found")

	// ErrUnsupportedVersion is returned when importing a snapshot from a newer format.
	ErrUnsupportedVersion = errors.New("learning: unsupported snapshot version")
)
