package automation

import (
	"context"

	"github.com/nerrad567/mixlogic-core/internal/session"
)

// StateSink receives the state changes a surface applies.
// *session.Monitor satisfies it.
type StateSink interface {
	UpdateDeck(deck session.DeckID, u session.DeckUpdate) error
	AddEffect(deck session.DeckID, effect string) error
	RemoveEffect(deck session.DeckID, effect string) error
	UpdateMixer(u session.MixerUpdate)
	UpdatePosition(deck session.DeckID, positionSec float64) error
	RecordAction(action string, deck session.DeckID)
}

// MonitoredSurface wraps a ControlSurface and mirrors every successful call
// into the session state, so the context monitor reflects what automation did.
type MonitoredSurface struct {
	next ControlSurface
	sink StateSink
}

// NewMonitoredSurface wraps next, mirroring into sink.
func NewMonitoredSurface(next ControlSurface, sink StateSink) *MonitoredSurface {
	return &MonitoredSurface{next: next, sink: sink}
}

func (m *MonitoredSurface) Play(ctx context.Context, deck session.DeckID) error {
	if err := m.next.Play(ctx, deck); err != nil {
		return err
	}
	playing := true
	m.sink.RecordAction("play", deck)
	return m.sink.UpdateDeck(deck, session.DeckUpdate{IsPlaying: &playing})
}

func (m *MonitoredSurface) Pause(ctx context.Context, deck session.DeckID) error {
	if err := m.next.Pause(ctx, deck); err != nil {
		return err
	}
	playing := false
	m.sink.RecordAction("pause", deck)
	return m.sink.UpdateDeck(deck, session.DeckUpdate{IsPlaying: &playing})
}

func (m *MonitoredSurface) Seek(ctx context.Context, deck session.DeckID, positionSec float64) error {
	if err := m.next.Seek(ctx, deck, positionSec); err != nil {
		return err
	}
	return m.sink.UpdatePosition(deck, positionSec)
}

func (m *MonitoredSurface) SetVolume(ctx context.Context, target Target, level float64) error {
	if err := m.next.SetVolume(ctx, target, level); err != nil {
		return err
	}
	if target == TargetMaster {
		m.sink.UpdateMixer(session.MixerUpdate{MasterVolume: &level})
		return nil
	}
	return m.sink.UpdateDeck(session.DeckID(target), session.DeckUpdate{Volume: &level})
}

func (m *MonitoredSurface) SetCrossfader(ctx context.Context, position float64) error {
	if err := m.next.SetCrossfader(ctx, position); err != nil {
		return err
	}
	m.sink.UpdateMixer(session.MixerUpdate{Crossfader: &position})
	return nil
}

func (m *MonitoredSurface) SetGain(ctx context.Context, deck session.DeckID, gain float64) error {
	return m.next.SetGain(ctx, deck, gain)
}

func (m *MonitoredSurface) SetEQ(ctx context.Context, deck session.DeckID, band EQBand, value float64) error {
	return m.next.SetEQ(ctx, deck, band, value)
}

func (m *MonitoredSurface) ApplyEffect(ctx context.Context, deck session.DeckID, effect string, intensity float64) error {
	if err := m.next.ApplyEffect(ctx, deck, effect, intensity); err != nil {
		return err
	}
	m.sink.RecordAction("apply_effect", deck)
	return m.sink.AddEffect(deck, effect)
}

func (m *MonitoredSurface) RemoveEffect(ctx context.Context, deck session.DeckID, effect string) error {
	if err := m.next.RemoveEffect(ctx, deck, effect); err != nil {
		return err
	}
	return m.sink.RemoveEffect(deck, effect)
}

func (m *MonitoredSurface) SetLoop(ctx context.Context, deck session.DeckID, beats int, enabled bool) error {
	if err := m.next.SetLoop(ctx, deck, beats, enabled); err != nil {
		return err
	}
	m.sink.RecordAction("set_loop", deck)
	return m.sink.UpdateDeck(deck, session.DeckUpdate{Loop: &enabled})
}

func (m *MonitoredSurface) TriggerHotCue(ctx context.Context, deck session.DeckID, cue int) error {
	if err := m.next.TriggerHotCue(ctx, deck, cue); err != nil {
		return err
	}
	m.sink.RecordAction("trigger_hotcue", deck)
	return nil
}

func (m *MonitoredSurface) SetTempo(ctx context.Context, deck session.DeckID, percent float64) error {
	if err := m.next.SetTempo(ctx, deck, percent); err != nil {
		return err
	}
	return m.sink.UpdateDeck(deck, session.DeckUpdate{Tempo: &percent})
}

func (m *MonitoredSurface) SetFilter(ctx context.Context, deck session.DeckID, value float64) error {
	return m.next.SetFilter(ctx, deck, value)
}
