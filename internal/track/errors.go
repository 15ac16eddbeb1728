package track

import "errors"

// Domain errors for the track package.
var (
	// ErrInvalidID is returned when a track has an empty identifier.
	ErrInvalidID = errors.New("track: invalid id")

	// ErrInvalidBPM is returned when BPM is not a positive finite number.
	ErrInvalidBPM = errors.New("track: invalid bpm")

	// ErrInvalidDuration is returned when duration is not a positive finite number.
	ErrInvalidDuration = errors.New("track: invalid duration")

	// ErrInvalidEnergy is returned when energy is outside [0, 1].
	ErrInvalidEnergy = errors.New("track: invalid energy")

	// ErrTrackNotFound is returned when a library lookup misses.
	ErrTrackNotFound = errors.New("track: not found")

	// ErrDuplicateTrack is returned when a library contains the same ID twice.
	ErrDuplicateTrack = errors.New("track: duplicate id")
)
