package training

import (
	"fmt"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/learning"
)

// Mode is how much the manager is allowed to do on its own.
type Mode string

// Operating modes.
const (
	// ModePassive only suggests.
	ModePassive Mode = "passive"
	// ModeActive suggests and executes what the operator approves.
	ModeActive Mode = "active"
	// ModeAutonomous executes confident decisions without asking.
	ModeAutonomous Mode = "autonomous"
)

// Preset holds the engine knobs a mode applies.
type Preset struct {
	Aggressiveness float64
	Creativity     float64
}

var presets = map[Mode]Preset{
	ModePassive:    {Aggressiveness: 0.3, Creativity: 0.3},
	ModeActive:     {Aggressiveness: 0.5, Creativity: 0.5},
	ModeAutonomous: {Aggressiveness: 0.7, Creativity: 0.6},
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := presets[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Preset returns the engine knobs for the mode.
func (m Mode) Preset() (Preset, bool) {
	p, ok := presets[m]
	return p, ok
}

// Correction is the operator's replacement for the last decision.
type Correction struct {
	// Action the operator would have taken instead. Empty means the same
	// action with different parameters.
	Action decision.Action `json:"action,omitempty"`
	Params decision.Params `json:"params"`
	Reason string          `json:"reason,omitempty"`
}

// ImpliedFactor maps a corrected action to the decision factor the operator
// cares about more than the engine did.
func ImpliedFactor(action decision.Action) (compat.Factor, bool) {
	switch action {
	case decision.ActionStartMix, decision.ActionSetLoop, decision.ActionTriggerHotCue,
		decision.ActionCrossfade, decision.ActionWait:
		return compat.FactorTiming, true
	case decision.ActionApplyEffect:
		return compat.FactorCrowdResponse, true
	case decision.ActionAdjustEQ:
		return compat.FactorEnergy, true
	case decision.ActionChangeTempo:
		return compat.FactorBPM, true
	default:
		return "", false
	}
}

// Status is the observable state of the manager.
type Status struct {
	Mode               Mode               `json:"mode"`
	Active             bool               `json:"is_active"`
	Progress           float64            `json:"progress"`
	TotalDecisions     int                `json:"total_decisions"`
	CorrectPredictions int                `json:"correct_predictions"`
	Accuracy           float64            `json:"accuracy"`
	LastDecision       *decision.Decision `json:"last_decision,omitempty"`
	Suggestion         string             `json:"suggestion,omitempty"`
	Weights            compat.Weights     `json:"weights"`
	Settings           decision.Settings  `json:"settings"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Observer receives status updates.
type Observer func(Status)

// SnapshotVersion is the current training snapshot format.
const SnapshotVersion = 1

// Snapshot is the full serialisable training state.
type Snapshot struct {
	Version            int                `json:"version" cbor:"version"`
	ExportedAt         time.Time          `json:"exported_at" cbor:"exported_at"`
	Mode               Mode               `json:"mode" cbor:"mode"`
	Active             bool               `json:"is_active" cbor:"is_active"`
	Settings           decision.Settings  `json:"settings" cbor:"settings"`
	Weights            compat.Weights     `json:"weights" cbor:"weights"`
	TotalDecisions     int                `json:"total_decisions" cbor:"total_decisions"`
	CorrectPredictions int                `json:"correct_predictions" cbor:"correct_predictions"`
	LastDecision       *decision.Decision `json:"last_decision,omitempty" cbor:"last_decision,omitempty"`
	Learning           learning.Snapshot  `json:"learning" cbor:"learning"`
}
