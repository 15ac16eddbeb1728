package track

import (
	"fmt"
	"math"
	"strings"
)

// Track holds the analysed metadata for one playable track.
//
// Values are passed by value and never mutated by the engine. Construct with New
// (or validate decoded values with Validate) so that BPM, duration and energy are
// always usable by the scoring code.
type Track struct {
	ID       string  `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Artist   string  `json:"artist" yaml:"artist"`
	BPM      float64 `json:"bpm" yaml:"bpm"`
	Key      string  `json:"key" yaml:"key"`
	Energy   float64 `json:"energy" yaml:"energy"`
	Genre    string  `json:"genre" yaml:"genre"`
	Duration float64 `json:"duration" yaml:"duration"` // seconds
}

// New validates the supplied fields and returns a Track.
func New(id, title, artist string, bpm float64, key string, energy float64, genre string, duration float64) (Track, error) {
	t := Track{
		ID:       strings.TrimSpace(id),
		Title:    title,
		Artist:   artist,
		BPM:      bpm,
		Key:      strings.TrimSpace(key),
		Energy:   energy,
		Genre:    strings.TrimSpace(genre),
		Duration: duration,
	}
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}

// Validate checks that the track can be scored safely.
func (t Track) Validate() error {
	if t.ID == "" {
		return ErrInvalidID
	}
	if !isFinite(t.BPM) || t.BPM <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBPM, t.BPM)
	}
	if !isFinite(t.Duration) || t.Duration <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, t.Duration)
	}
	if !isFinite(t.Energy) || t.Energy < 0 || t.Energy > 1 {
		return fmt.Errorf("%w: %v must be within [0, 1]", ErrInvalidEnergy, t.Energy)
	}
	return nil
}

// ParsedKey returns the track's key on the harmonic wheel.
func (t Track) ParsedKey() Key {
	return ParseKey(t.Key)
}

// Clone returns a pointer to an independent copy of t.
func (t Track) Clone() *Track {
	cpy := t
	return &cpy
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
