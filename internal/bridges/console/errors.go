package console

import "errors"

// Domain errors for the console bridge.
var (
	// ErrUnknownTopic is returned for a console topic the bridge does not handle.
	ErrUnknownTopic = errors.New("console: unknown topic")

	// ErrInvalidPayload is returned when a message body cannot be decoded or
	// is missing required fields.
	ErrInvalidPayload = errors.New("console: invalid payload")

	// ErrNoLibrary is returned when a load message names a track id but no
	// track library is configured.
	ErrNoLibrary = errors.New("console: no track library configured")

	// ErrNotStarted is returned by Stop when Start was never called.
	ErrNotStarted = errors.New("console: bridge not started")
)
