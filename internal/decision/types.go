package decision

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Action is the kind of a Decision.
type Action string

const (
	ActionStartMix      Action = "start_mix"
	ActionApplyEffect   Action = "apply_effect"
	ActionAdjustEQ      Action = "adjust_eq"
	ActionSetLoop       Action = "set_loop"
	ActionTriggerHotCue Action = "trigger_hotcue"
	ActionChangeTempo   Action = "change_tempo"
	ActionCrossfade     Action = "crossfade"
	ActionWait          Action = "wait"
)

// AllActions lists every action kind.
var AllActions = []Action{
	ActionStartMix, ActionApplyEffect, ActionAdjustEQ, ActionSetLoop,
	ActionTriggerHotCue, ActionChangeTempo, ActionCrossfade, ActionWait,
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Style is the overall mixing style.
type Style string

const (
	StyleSmooth    Style = "smooth"
	StyleEnergetic Style = "energetic"
	StyleTechnical Style = "technical"
	StyleMinimal   Style = "minimal"
)

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleSmooth, StyleEnergetic, StyleTechnical, StyleMinimal:
		return Style(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
	}
}

// Params are the optional parameters of a Decision. Which fields are
// meaningful depends on the Action.
type Params struct {
	Deck      session.DeckID `json:"deck,omitempty" cbor:"deck,omitempty"`
	Timing    float64        `json:"timing,omitempty" cbor:"timing,omitempty"` // seconds
	Intensity float64        `json:"intensity,omitempty" cbor:"intensity,omitempty"`
	Effect    string         `json:"effect,omitempty" cbor:"effect,omitempty"`
	Value     float64        `json:"value,omitempty" cbor:"value,omitempty"`
	Target    *float64       `json:"target,omitempty" cbor:"target,omitempty"`
	Duration  float64        `json:"duration,omitempty" cbor:"duration,omitempty"` // seconds
	Beats     int            `json:"beats,omitempty" cbor:"beats,omitempty"`
	Cue       int            `json:"cue,omitempty" cbor:"cue,omitempty"`
	Tempo     float64        `json:"tempo,omitempty" cbor:"tempo,omitempty"`
}

// Decision is one recommended or executable mixing action.
// It is never modified after the Engine returns it.
type Decision struct {
	ID         string    `json:"id" cbor:"id"`
	Action     Action    `json:"action" cbor:"action"`
	Confidence float64   `json:"confidence" cbor:"confidence"`
	Rationale  string    `json:"rationale" cbor:"rationale"`
	Params     Params    `json:"params" cbor:"params"`
	CreatedAt  time.Time `json:"created_at" cbor:"created_at"`
}

// NewDecision builds a decision with a fresh ID and clamped confidence.
func NewDecision(action Action, confidence float64, rationale string, params Params) Decision {
	return Decision{
		ID:         uuid.NewString(),
		Action:     action,
		Confidence: session.Clamp01(confidence),
		Rationale:  rationale,
		Params:     params,
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone returns a copy that shares no memory with d.
func (d Decision) Clone() *Decision {
	cpy := d
	if d.Params.Target != nil {
		v := *d.Params.Target
		cpy.Params.Target = &v
	}
	return &cpy
}
