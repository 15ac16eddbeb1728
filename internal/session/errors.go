package session

import "errors"

var (
	// ErrInvalidDeck is returned when a deck identifier is not A or B.
	ErrInvalidDeck = errors.New("session: invalid deck")

	// ErrNoTrackLoaded is returned when a position update targets an empty deck.
	ErrNoTrackLoaded = errors.New("session: no track loaded")
)
