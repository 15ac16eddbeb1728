package console

import (
	"time"

	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// MQTT message types sent by the controller to Core.

// DeckStateMessage reports a partial deck state. Nil fields are unchanged.
// Topic: mixlogic/console/{A|B}/state
type DeckStateMessage struct {
	// Timestamp is when the controller observed the state (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp,omitempty"`

	session.DeckUpdate

	// Position is the playhead in seconds. Requires a loaded track.
	Position *float64 `json:"position,omitempty"`

	// Active marks this deck as the one on air.
	Active bool `json:"active,omitempty"`
}

// LoadMessage reports a track placed on a deck. Either TrackID (looked up
// in the library) or an inline Track is required.
// Topic: mixlogic/console/{A|B}/load
type LoadMessage struct {
	Timestamp time.Time    `json:"timestamp,omitempty"`
	TrackID   string       `json:"track_id,omitempty"`
	Track     *track.Track `json:"track,omitempty"`
	Active    bool         `json:"active,omitempty"`
}

// MixerStateMessage reports a partial mixer state. Nil fields are unchanged.
// Topic: mixlogic/console/mixer/state
type MixerStateMessage struct {
	Timestamp time.Time `json:"timestamp,omitempty"`

	session.MixerUpdate
}

// CrowdStateMessage reports crowd and target energy, both in [0,1].
// Topic: mixlogic/console/crowd/state
type CrowdStateMessage struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Energy    *float64  `json:"energy,omitempty"`
	Target    *float64  `json:"target,omitempty"`
}

// ActionMessage reports a manual action by the DJ.
// Topic: mixlogic/console/action
type ActionMessage struct {
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Action    string            `json:"action"`
	Choice    learning.Choice   `json:"choice"`
	Outcome   *learning.Outcome `json:"outcome,omitempty"`
}
