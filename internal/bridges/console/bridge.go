package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

const (
	// subscribeQoS is the QoS used for the console subscription.
	subscribeQoS = 1

	// Console topics split into prefix/console/target[/kind].
	actionTopicParts = 3
	targetTopicParts = 4

	targetMixer = "mixer"
	targetCrowd = "crowd"

	kindState = "state"
	kindLoad  = "load"
)

// Subscriber is the MQTT subset the bridge needs. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// StateSink receives console state. *session.Monitor satisfies it.
type StateSink interface {
	Context() session.Context
	UpdateDeck(deck session.DeckID, u session.DeckUpdate) error
	UpdatePosition(deck session.DeckID, positionSec float64) error
	LoadTrack(deck session.DeckID, t track.Track) error
	SetActiveDeck(deck session.DeckID) error
	UpdateMixer(u session.MixerUpdate)
	UpdateCrowdEnergy(v float64)
	SetTargetEnergy(v float64)
	RecordAction(action string, deck session.DeckID)
}

// ActionRecorder logs manual actions for learning. *training.Manager satisfies it.
type ActionRecorder interface {
	RecordUserAction(action string, ctx session.Context, choice learning.Choice, outcome *learning.Outcome) (learning.Event, error)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options holds the dependencies for creating a bridge.
type Options struct {
	// MQTT is the subscription side of the MQTT client. Required.
	MQTT Subscriber

	// Sink is the session monitor. Required.
	Sink StateSink

	// Library resolves track ids in load messages. Optional; without it
	// only inline tracks can be loaded.
	Library *track.Library

	// Recorder logs manual actions for learning. Optional; without it
	// actions only reach the monitor's recent-actions list.
	Recorder ActionRecorder
}

// Stats counts handled console messages.
type Stats struct {
	Received uint64 `json:"received"`
	Applied  uint64 `json:"applied"`
	Rejected uint64 `json:"rejected"`
}

// Bridge applies controller state from MQTT to the session monitor.
type Bridge struct {
	mqtt     Subscriber
	sink     StateSink
	library  *track.Library
	recorder ActionRecorder

	loggerMu sync.RWMutex
	logger   Logger

	started  atomic.Bool
	received atomic.Uint64
	applied  atomic.Uint64
	rejected atomic.Uint64
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, errors.New("console: MQTT client is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("console: state sink is required")
	}
	return &Bridge{
		mqtt:     opts.MQTT,
		sink:     opts.Sink,
		library:  opts.Library,
		recorder: opts.Recorder,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) log() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// Start subscribes to every console topic. The MQTT client re-subscribes
// after a reconnect.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllConsole()
	if err := b.mqtt.Subscribe(topic, subscribeQoS, b.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to console: %w", err)
	}
	b.started.Store(true)
	b.log().Info("console bridge started", "topic", topic)
	return nil
}

// Stop unsubscribes from the console topics.
func (b *Bridge) Stop() error {
	if !b.started.Swap(false) {
		return ErrNotStarted
	}
	if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllConsole()); err != nil {
		return fmt.Errorf("unsubscribe from console: %w", err)
	}
	b.log().Info("console bridge stopped")
	return nil
}

// Stats returns the message counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received: b.received.Load(),
		Applied:  b.applied.Load(),
		Rejected: b.rejected.Load(),
	}
}

// HandleMessage routes one console message. It is the MQTT handler; a
// returned error is logged by the client and leaves state unchanged.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	b.received.Add(1)

	err := b.route(topic, payload)
	if err != nil {
		b.rejected.Add(1)
		return err
	}
	b.applied.Add(1)
	b.log().Debug("console message applied", "topic", topic)
	return nil
}

func (b *Bridge) route(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < actionTopicParts || parts[0]+"/"+parts[1] != mqtt.TopicPrefixConsole {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	if len(parts) == actionTopicParts {
		if parts[2] != "action" {
			return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
		}
		return b.handleAction(payload)
	}
	if len(parts) != targetTopicParts {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	target, kind := parts[2], parts[3]
	switch {
	case target == targetMixer && kind == kindState:
		return b.handleMixer(payload)
	case target == targetCrowd && kind == kindState:
		return b.handleCrowd(payload)
	}

	deck := session.DeckID(strings.ToUpper(target))
	if !deck.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	switch kind {
	case kindState:
		return b.handleDeckState(deck, payload)
	case kindLoad:
		return b.handleLoad(deck, payload)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

func (b *Bridge) handleDeckState(deck session.DeckID, payload []byte) error {
	var msg DeckStateMessage
	if err := decode(payload, &msg); err != nil {
		return err
	}

	if err := b.sink.UpdateDeck(deck, msg.DeckUpdate); err != nil {
		return err
	}
	if msg.Position != nil {
		if err := b.sink.UpdatePosition(deck, *msg.Position); err != nil {
			return err
		}
	}
	if msg.Active {
		return b.sink.SetActiveDeck(deck)
	}
	return nil
}

func (b *Bridge) handleLoad(deck session.DeckID, payload []byte) error {
	var msg LoadMessage
	if err := decode(payload, &msg); err != nil {
		return err
	}

	var t track.Track
	switch {
	case msg.Track != nil:
		t = *msg.Track
	case msg.TrackID != "":
		if b.library == nil {
			return ErrNoLibrary
		}
		found, err := b.library.Get(msg.TrackID)
		if err != nil {
			return err
		}
		t = found
	default:
		return fmt.Errorf("%w: track_id or track is required", ErrInvalidPayload)
	}

	if err := b.sink.LoadTrack(deck, t); err != nil {
		return err
	}
	if msg.Active {
		if err := b.sink.SetActiveDeck(deck); err != nil {
			return err
		}
	}
	b.sink.RecordAction("load_track", deck)
	b.log().Info("track loaded from console", "deck", deck, "track_id", t.ID)
	return nil
}

func (b *Bridge) handleMixer(payload []byte) error {
	var msg MixerStateMessage
	if err := decode(payload, &msg); err != nil {
		return err
	}
	b.sink.UpdateMixer(msg.MixerUpdate)
	return nil
}

func (b *Bridge) handleCrowd(payload []byte) error {
	var msg CrowdStateMessage
	if err := decode(payload, &msg); err != nil {
		return err
	}
	if msg.Energy == nil && msg.Target == nil {
		return fmt.Errorf("%w: energy or target is required", ErrInvalidPayload)
	}
	if msg.Energy != nil {
		b.sink.UpdateCrowdEnergy(*msg.Energy)
	}
	if msg.Target != nil {
		b.sink.SetTargetEnergy(*msg.Target)
	}
	return nil
}

func (b *Bridge) handleAction(payload []byte) error {
	var msg ActionMessage
	if err := decode(payload, &msg); err != nil {
		return err
	}
	msg.Action = strings.TrimSpace(msg.Action)
	if msg.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidPayload)
	}

	if b.recorder != nil {
		if _, err := b.recorder.RecordUserAction(msg.Action, b.sink.Context(), msg.Choice, msg.Outcome); err != nil {
			return fmt.Errorf("recording action: %w", err)
		}
	}
	b.sink.RecordAction(msg.Action, msg.Choice.Params.Deck)
	return nil
}
