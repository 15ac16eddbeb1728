package console

import (
	"errors"
	"testing"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// mockSubscriber records subscriptions and exposes the handler.
type mockSubscriber struct {
	topic        string
	qos          byte
	handler      mqtt.MessageHandler
	unsubscribed []string
	subErr       error
}

func (m *mockSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if m.subErr != nil {
		return m.subErr
	}
	m.topic, m.qos, m.handler = topic, qos, handler
	return nil
}

func (m *mockSubscriber) Unsubscribe(topic string) error {
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

// mockRecorder records manual actions.
type mockRecorder struct {
	actions []string
	err     error
}

func (m *mockRecorder) RecordUserAction(action string, _ session.Context, _ learning.Choice, _ *learning.Outcome) (learning.Event, error) {
	if m.err != nil {
		return learning.Event{}, m.err
	}
	m.actions = append(m.actions, action)
	return learning.Event{ID: "evt-1", Action: action}, nil
}

func testLibrary(t *testing.T) *track.Library {
	t.Helper()
	a, err := track.New("a", "Opener", "Alpha", 128, "Am", 0.6, "House", 300)
	if err != nil {
		t.Fatalf("track.New() error = %v", err)
	}
	lib, err := track.NewLibrary(a)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	return lib
}

func newTestBridge(t *testing.T) (*Bridge, *session.Monitor, *mockRecorder) {
	t.Helper()
	monitor := session.NewMonitor()
	rec := &mockRecorder{}
	b, err := NewBridge(Options{
		MQTT:     &mockSubscriber{},
		Sink:     monitor,
		Library:  testLibrary(t),
		Recorder: rec,
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	return b, monitor, rec
}

// ─── Construction ───────────────────────────────────────────────────

func TestNewBridge_RequiresDeps(t *testing.T) {
	if _, err := NewBridge(Options{Sink: session.NewMonitor()}); err == nil {
		t.Error("NewBridge() without MQTT should fail")
	}
	if _, err := NewBridge(Options{MQTT: &mockSubscriber{}}); err == nil {
		t.Error("NewBridge() without sink should fail")
	}
}

func TestStartStop(t *testing.T) {
	sub := &mockSubscriber{}
	b, err := NewBridge(Options{MQTT: sub, Sink: session.NewMonitor()})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	if err := b.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop() before Start error = %v, want ErrNotStarted", err)
	}

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != "mixlogic/console/#" || sub.qos != 1 {
		t.Errorf("subscribed %q qos %d, want mixlogic/console/# qos 1", sub.topic, sub.qos)
	}
	if sub.handler == nil {
		t.Fatal("handler not registered")
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(sub.unsubscribed) != 1 || sub.unsubscribed[0] != "mixlogic/console/#" {
		t.Errorf("unsubscribed = %v", sub.unsubscribed)
	}
}

func TestStart_SubscribeFails(t *testing.T) {
	b, err := NewBridge(Options{MQTT: &mockSubscriber{subErr: mqtt.ErrNotConnected}, Sink: session.NewMonitor()})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

// ─── Message handling ───────────────────────────────────────────────

func TestHandleMessage_LoadAndDeckState(t *testing.T) {
	b, monitor, _ := newTestBridge(t)

	if err := b.HandleMessage("mixlogic/console/A/load", []byte(`{"track_id":"a","active":true}`)); err != nil {
		t.Fatalf("load error = %v", err)
	}
	if err := b.HandleMessage("mixlogic/console/a/state",
		[]byte(`{"is_playing":true,"volume":0.8,"position":100}`)); err != nil {
		t.Fatalf("state error = %v", err)
	}

	ctx := monitor.Context()
	if ctx.ActiveDeck != session.DeckA {
		t.Errorf("ActiveDeck = %q, want A", ctx.ActiveDeck)
	}
	if ctx.DeckA.Track == nil || ctx.DeckA.Track.ID != "a" {
		t.Fatalf("DeckA.Track = %+v, want a", ctx.DeckA.Track)
	}
	if !ctx.DeckA.IsPlaying || ctx.DeckA.Volume != 0.8 || ctx.DeckA.Position != 100 {
		t.Errorf("DeckA = %+v", ctx.DeckA)
	}
	if len(ctx.RecentActions) == 0 || ctx.RecentActions[0].Action != "load_track" {
		t.Errorf("RecentActions = %+v, want load_track first", ctx.RecentActions)
	}
}

func TestHandleMessage_MixerAndCrowd(t *testing.T) {
	b, monitor, _ := newTestBridge(t)

	if err := b.HandleMessage("mixlogic/console/mixer/state", []byte(`{"crossfader":0.25}`)); err != nil {
		t.Fatalf("mixer error = %v", err)
	}
	if err := b.HandleMessage("mixlogic/console/crowd/state", []byte(`{"energy":0.9,"target":0.6}`)); err != nil {
		t.Fatalf("crowd error = %v", err)
	}

	ctx := monitor.Context()
	if ctx.Mixer.Crossfader != 0.25 {
		t.Errorf("Crossfader = %v, want 0.25", ctx.Mixer.Crossfader)
	}
	if ctx.CrowdEnergy != 0.9 || ctx.TargetEnergy != 0.6 {
		t.Errorf("energy = %v/%v, want 0.9/0.6", ctx.CrowdEnergy, ctx.TargetEnergy)
	}
}

func TestHandleMessage_Action(t *testing.T) {
	b, monitor, rec := newTestBridge(t)

	err := b.HandleMessage("mixlogic/console/action", []byte(`{"action":"manual_mix","choice":{"params":{"deck":"B"}}}`))
	if err != nil {
		t.Fatalf("action error = %v", err)
	}
	if len(rec.actions) != 1 || rec.actions[0] != "manual_mix" {
		t.Errorf("recorded = %v, want [manual_mix]", rec.actions)
	}
	ctx := monitor.Context()
	if len(ctx.RecentActions) == 0 || ctx.RecentActions[0].Deck != session.DeckB {
		t.Errorf("RecentActions = %+v, want manual_mix on B", ctx.RecentActions)
	}
}

func TestHandleMessage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"foreign prefix", "mixlogic/command/A", `{}`, ErrUnknownTopic},
		{"unknown deck", "mixlogic/console/C/state", `{}`, ErrUnknownTopic},
		{"unknown kind", "mixlogic/console/A/eject", `{}`, ErrUnknownTopic},
		{"too deep", "mixlogic/console/A/state/extra", `{}`, ErrUnknownTopic},
		{"unknown short topic", "mixlogic/console/ping", `{}`, ErrUnknownTopic},
		{"malformed json", "mixlogic/console/A/state", `{`, ErrInvalidPayload},
		{"load without track", "mixlogic/console/A/load", `{}`, ErrInvalidPayload},
		{"load unknown id", "mixlogic/console/A/load", `{"track_id":"zz"}`, track.ErrTrackNotFound},
		{"position without track", "mixlogic/console/B/state", `{"position":10}`, session.ErrNoTrackLoaded},
		{"crowd empty", "mixlogic/console/crowd/state", `{}`, ErrInvalidPayload},
		{"action empty", "mixlogic/console/action", `{"action":"  "}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, _ := newTestBridge(t)
			err := b.HandleMessage(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleMessage() error = %v, want %v", err, tt.wantErr)
			}
			if st := b.Stats(); st.Rejected != 1 || st.Applied != 0 {
				t.Errorf("Stats() = %+v, want one rejection", st)
			}
		})
	}
}

func TestHandleMessage_LoadWithoutLibrary(t *testing.T) {
	b, err := NewBridge(Options{MQTT: &mockSubscriber{}, Sink: session.NewMonitor()})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.HandleMessage("mixlogic/console/A/load", []byte(`{"track_id":"a"}`)); !errors.Is(err, ErrNoLibrary) {
		t.Errorf("error = %v, want ErrNoLibrary", err)
	}

	inline := `{"track":{"id":"x","title":"Inline","artist":"Z","bpm":124,"key":"8A","energy":0.5,"genre":"House","duration":240}}`
	if err := b.HandleMessage("mixlogic/console/A/load", []byte(inline)); err != nil {
		t.Errorf("inline load error = %v", err)
	}
}

func TestHandleMessage_RecorderFailure(t *testing.T) {
	monitor := session.NewMonitor()
	b, err := NewBridge(Options{
		MQTT:     &mockSubscriber{},
		Sink:     monitor,
		Recorder: &mockRecorder{err: errors.New("disk full")},
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	if err := b.HandleMessage("mixlogic/console/action", []byte(`{"action":"manual_mix"}`)); err == nil {
		t.Fatal("expected recorder error")
	}
	if n := len(monitor.Context().RecentActions); n != 0 {
		t.Errorf("RecentActions = %d, want 0 after a failed record", n)
	}
}

func TestStats(t *testing.T) {
	b, _, _ := newTestBridge(t)

	_ = b.HandleMessage("mixlogic/console/mixer/state", []byte(`{"master_volume":0.9}`))
	_ = b.HandleMessage("mixlogic/console/mixer/state", []byte(`not json`))

	got := b.Stats()
	want := Stats{Received: 2, Applied: 1, Rejected: 1}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
