package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Publisher is the interface for publishing commands over MQTT.
type Publisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// commandQoS is at-least-once; surface commands are idempotent.
const commandQoS = 1

// Command is the JSON payload published for every surface call.
type Command struct {
	ID         string         `json:"id"`
	Command    string         `json:"command"`
	Target     Target         `json:"target"`
	Parameters map[string]any `json:"parameters"`
	Source     string         `json:"source"`
	Timestamp  time.Time      `json:"timestamp"`
}

// MQTTSurface is a ControlSurface that publishes each call as a JSON
// command on a per-target topic, e.g. mixlogic/command/A.
type MQTTSurface struct {
	pub    Publisher
	topic  func(target string) string
	source string
	logger Logger
}

// NewMQTTSurface creates an MQTT-backed control surface.
//
// Parameters:
//   - pub: MQTT publisher (typically *mqtt.Client)
//   - topic: builds the command topic for a target
func NewMQTTSurface(pub Publisher, topic func(target string) string) *MQTTSurface {
	return &MQTTSurface{
		pub:    pub,
		topic:  topic,
		source: "mixlogic",
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the surface.
func (s *MQTTSurface) SetLogger(logger Logger) {
	s.logger = logger
}

func (s *MQTTSurface) send(ctx context.Context, target Target, command string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.pub == nil {
		return ErrPublisherUnavailable
	}
	if params == nil {
		params = map[string]any{}
	}

	cmd := Command{
		ID:         uuid.NewString(),
		Command:    command,
		Target:     target,
		Parameters: params,
		Source:     s.source,
		Timestamp:  time.Now().UTC(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	topic := s.topic(string(target))
	if err := s.pub.Publish(topic, payload, commandQoS, false); err != nil {
		return fmt.Errorf("publishing to %q: %w", topic, err)
	}

	s.logger.Debug("surface command published",
		"command", command,
		"target", target,
		"topic", topic,
	)
	return nil
}

func (s *MQTTSurface) Play(ctx context.Context, deck session.DeckID) error {
	return s.send(ctx, DeckTarget(deck), "play", nil)
}

func (s *MQTTSurface) Pause(ctx context.Context, deck session.DeckID) error {
	return s.send(ctx, DeckTarget(deck), "pause", nil)
}

func (s *MQTTSurface) Seek(ctx context.Context, deck session.DeckID, positionSec float64) error {
	return s.send(ctx, DeckTarget(deck), "seek", map[string]any{"position_sec": positionSec})
}

func (s *MQTTSurface) SetVolume(ctx context.Context, target Target, level float64) error {
	return s.send(ctx, target, "set_volume", map[string]any{"level": level})
}

func (s *MQTTSurface) SetCrossfader(ctx context.Context, position float64) error {
	return s.send(ctx, TargetMaster, "set_crossfader", map[string]any{"position": position})
}

func (s *MQTTSurface) SetGain(ctx context.Context, deck session.DeckID, gain float64) error {
	return s.send(ctx, DeckTarget(deck), "set_gain", map[string]any{"gain": gain})
}

func (s *MQTTSurface) SetEQ(ctx context.Context, deck session.DeckID, band EQBand, value float64) error {
	return s.send(ctx, DeckTarget(deck), "set_eq", map[string]any{"band": string(band), "value": value})
}

func (s *MQTTSurface) ApplyEffect(ctx context.Context, deck session.DeckID, effect string, intensity float64) error {
	return s.send(ctx, DeckTarget(deck), "apply_effect", map[string]any{"effect": effect, "intensity": intensity})
}

func (s *MQTTSurface) RemoveEffect(ctx context.Context, deck session.DeckID, effect string) error {
	return s.send(ctx, DeckTarget(deck), "remove_effect", map[string]any{"effect": effect})
}

func (s *MQTTSurface) SetLoop(ctx context.Context, deck session.DeckID, beats int, enabled bool) error {
	return s.send(ctx, DeckTarget(deck), "set_loop", map[string]any{"beats": beats, "enabled": enabled})
}

func (s *MQTTSurface) TriggerHotCue(ctx context.Context, deck session.DeckID, cue int) error {
	return s.send(ctx, DeckTarget(deck), "trigger_hotcue", map[string]any{"cue": cue})
}

func (s *MQTTSurface) SetTempo(ctx context.Context, deck session.DeckID, percent float64) error {
	return s.send(ctx, DeckTarget(deck), "set_tempo", map[string]any{"percent": percent})
}

func (s *MQTTSurface) SetFilter(ctx context.Context, deck session.DeckID, value float64) error {
	return s.send(ctx, DeckTarget(deck), "set_filter", map[string]any{"value": value})
}
