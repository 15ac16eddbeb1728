package session

import (
	"slices"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/track"
)

// DeckID identifies one of the two playback slots.
type DeckID string

const (
	DeckA DeckID = "A"
	DeckB DeckID = "B"
)

// Valid reports whether d is DeckA or DeckB.
func (d DeckID) Valid() bool {
	return d == DeckA || d == DeckB
}

// Other returns the opposite deck.
func (d DeckID) Other() DeckID {
	if d == DeckA {
		return DeckB
	}
	return DeckA
}

// Trend is the direction of the set's energy over recently loaded tracks.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// DeckState is the live state of one deck.
type DeckState struct {
	Track         *track.Track `json:"track,omitempty"`
	IsPlaying     bool         `json:"is_playing"`
	Position      float64      `json:"position_sec"`
	TimeRemaining float64      `json:"time_remaining_sec"`
	Volume        float64      `json:"volume"`
	Tempo         float64      `json:"tempo"` // pitch adjustment in percent
	Effects       []string     `json:"effects"`
	Loop          bool         `json:"loop"`
}

// DeepCopy returns an independent copy of the deck state.
func (d DeckState) DeepCopy() DeckState {
	cpy := d
	if d.Track != nil {
		cpy.Track = d.Track.Clone()
	}
	cpy.Effects = slices.Clone(d.Effects)
	return cpy
}

// HasEffect reports whether the named effect is active.
func (d DeckState) HasEffect(name string) bool {
	return slices.Contains(d.Effects, name)
}

// MixerState is the state of the shared mixer section.
type MixerState struct {
	Crossfader   float64 `json:"crossfader"` // 0 = full deck A, 1 = full deck B
	MasterVolume float64 `json:"master_volume"`
}

// ActionRecord is an operator or automation action observed by the monitor.
type ActionRecord struct {
	Action string    `json:"action"`
	Deck   DeckID    `json:"deck,omitempty"`
	At     time.Time `json:"at"`
}

// DeckUpdate is a partial deck update. Nil fields are left unchanged.
type DeckUpdate struct {
	IsPlaying *bool    `json:"is_playing,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
	Tempo     *float64 `json:"tempo,omitempty"`
	Effects   []string `json:"effects,omitempty"`
	Loop      *bool    `json:"loop,omitempty"`
}

// MixerUpdate is a partial mixer update. Nil fields are left unchanged.
type MixerUpdate struct {
	Crossfader   *float64 `json:"crossfader,omitempty"`
	MasterVolume *float64 `json:"master_volume,omitempty"`
}

// Context is an immutable snapshot of the session used for decision making.
//
// It is built on demand by Monitor.Context and shares no memory with the monitor.
type Context struct {
	DeckA      DeckState  `json:"deck_a"`
	DeckB      DeckState  `json:"deck_b"`
	Mixer      MixerState `json:"mixer"`
	ActiveDeck DeckID     `json:"active_deck"`

	CurrentTrack  *track.Track `json:"current_track,omitempty"`
	NextTrack     *track.Track `json:"next_track,omitempty"`
	TimeRemaining float64      `json:"time_remaining_sec"`

	CrowdEnergy  float64 `json:"crowd_energy"`
	SetEnergy    float64 `json:"set_energy"`
	TargetEnergy float64 `json:"target_energy"`
	EnergyTrend  Trend   `json:"energy_trend"`

	SessionDuration float64        `json:"session_duration_sec"`
	RecentTracks    []string       `json:"recent_tracks"`   // newest first
	RecentEnergies  []float64      `json:"recent_energies"` // newest first, parallel to RecentTracks
	RecentActions   []ActionRecord `json:"recent_actions"`  // newest first

	CapturedAt time.Time `json:"captured_at"`
}

// Deck returns the state of the given deck.
func (c Context) Deck(id DeckID) DeckState {
	if id == DeckB {
		return c.DeckB
	}
	return c.DeckA
}

// SessionMinutes returns the session duration in minutes.
func (c Context) SessionMinutes() float64 {
	return c.SessionDuration / 60
}

// WasRecentlyPlayed reports whether a track ID is in the recent-tracks ring.
func (c Context) WasRecentlyPlayed(id string) bool {
	return slices.Contains(c.RecentTracks, id)
}

// DeepCopy returns an independent copy of the context.
func (c Context) DeepCopy() Context {
	cpy := c
	cpy.DeckA = c.DeckA.DeepCopy()
	cpy.DeckB = c.DeckB.DeepCopy()
	if c.CurrentTrack != nil {
		cpy.CurrentTrack = c.CurrentTrack.Clone()
	}
	if c.NextTrack != nil {
		cpy.NextTrack = c.NextTrack.Clone()
	}
	cpy.RecentTracks = slices.Clone(c.RecentTracks)
	cpy.RecentEnergies = slices.Clone(c.RecentEnergies)
	cpy.RecentActions = slices.Clone(c.RecentActions)
	return cpy
}

// Clamp01 limits v to [0, 1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
