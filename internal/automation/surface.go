package automation

import (
	"context"
	"fmt"

	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Target addresses a controllable channel.
type Target string

const (
	TargetA      Target = "A"
	TargetB      Target = "B"
	TargetMaster Target = "master"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetA, TargetB, TargetMaster:
		return Target(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
}

// DeckTarget returns the target for a deck.
func DeckTarget(d session.DeckID) Target {
	return Target(d)
}

// EQBand is one band of a deck's three-band EQ.
type EQBand string

const (
	EQLow  EQBand = "low"
	EQMid  EQBand = "mid"
	EQHigh EQBand = "high"
)

// ControlSurface is the deck/mixer being automated.
//
// Implementations must be idempotent per call: repeating a call with the
// same arguments leaves the surface in the same state.
type ControlSurface interface {
	Play(ctx context.Context, deck session.DeckID) error
	Pause(ctx context.Context, deck session.DeckID) error
	Seek(ctx context.Context, deck session.DeckID, positionSec float64) error
	// SetVolume sets a deck channel fader or the master volume, in [0, 1].
	SetVolume(ctx context.Context, target Target, level float64) error
	// SetCrossfader sets the crossfader; 0 is full deck A, 1 is full deck B.
	SetCrossfader(ctx context.Context, position float64) error
	SetGain(ctx context.Context, deck session.DeckID, gain float64) error
	// SetEQ sets one EQ band; 0 is flat, negative cuts, positive boosts.
	SetEQ(ctx context.Context, deck session.DeckID, band EQBand, value float64) error
	ApplyEffect(ctx context.Context, deck session.DeckID, effect string, intensity float64) error
	RemoveEffect(ctx context.Context, deck session.DeckID, effect string) error
	SetLoop(ctx context.Context, deck session.DeckID, beats int, enabled bool) error
	TriggerHotCue(ctx context.Context, deck session.DeckID, cue int) error
	// SetTempo sets the pitch adjustment in percent.
	SetTempo(ctx context.Context, deck session.DeckID, percent float64) error
	// SetFilter sets the filter sweep; 0.5 is open, lower is low-pass, higher is high-pass.
	SetFilter(ctx context.Context, deck session.DeckID, value float64) error
}

// eqPreset is a full three-band EQ setting.
type eqPreset map[EQBand]float64

var (
	eqBoost = eqPreset{EQLow: 0.2, EQMid: 0.1, EQHigh: 0.3}
	eqCut   = eqPreset{EQLow: -0.2, EQMid: -0.1, EQHigh: -0.3}
	eqFlat  = eqPreset{EQLow: 0, EQMid: 0, EQHigh: 0}
)

// eqBands is the order presets are applied in.
var eqBands = []EQBand{EQLow, EQMid, EQHigh}

// NopSurface accepts every call and does nothing. Wrapped in a
// MonitoredSurface it simulates a console entirely in session state.
type NopSurface struct{}

func (NopSurface) Play(context.Context, session.DeckID) error                         { return nil }
func (NopSurface) Pause(context.Context, session.DeckID) error                        { return nil }
func (NopSurface) Seek(context.Context, session.DeckID, float64) error                { return nil }
func (NopSurface) SetVolume(context.Context, Target, float64) error                   { return nil }
func (NopSurface) SetCrossfader(context.Context, float64) error                       { return nil }
func (NopSurface) SetGain(context.Context, session.DeckID, float64) error             { return nil }
func (NopSurface) SetEQ(context.Context, session.DeckID, EQBand, float64) error       { return nil }
func (NopSurface) ApplyEffect(context.Context, session.DeckID, string, float64) error { return nil }
func (NopSurface) RemoveEffect(context.Context, session.DeckID, string) error         { return nil }
func (NopSurface) SetLoop(context.Context, session.DeckID, int, bool) error           { return nil }
func (NopSurface) TriggerHotCue(context.Context, session.DeckID, int) error           { return nil }
func (NopSurface) SetTempo(context.Context, session.DeckID, float64) error            { return nil }
func (NopSurface) SetFilter(context.Context, session.DeckID, float64) error           { return nil }
