package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrInvalidTarget) {
//	    // handle bad target
//	}
var (
	// ErrInvalidTarget is returned when a control target is not A, B or master.
	ErrInvalidTarget = errors.New("automation: invalid target")

	// ErrUnsupportedAction is returned when a decision action has no executor.
	ErrUnsupportedAction = errors.New("automation: unsupported action")

	// ErrExecutorClosed is returned when starting work on a closed executor.
	ErrExecutorClosed = errors.New("automation: executor closed")

	// ErrPublisherUnavailable is returned when the MQTT surface has no publisher.
	ErrPublisherUnavailable = errors.New("automation: publisher unavailable")
)
