package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// ─── Mock Surface ───────────────────────────────────────────────────────────

type surfaceCall struct {
	Method string
	Target string
	Value  float64
	Text   string
}

// mockSurface records every call and tracks the resulting control values.
type mockSurface struct {
	mu         sync.Mutex
	calls      []surfaceCall
	failOn     string
	crossfader []float64
	volume     map[Target]float64
	playing    map[session.DeckID]bool
	tempo      map[session.DeckID]float64
	eq         map[EQBand]float64
}

func newMockSurface() *mockSurface {
	return &mockSurface{
		volume:  map[Target]float64{TargetA: 1, TargetB: 1, TargetMaster: 1},
		playing: map[session.DeckID]bool{},
		tempo:   map[session.DeckID]float64{},
		eq:      map[EQBand]float64{},
	}
}

func (m *mockSurface) record(method, target string, value float64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == method {
		return errors.New("surface offline")
	}
	m.calls = append(m.calls, surfaceCall{Method: method, Target: target, Value: value, Text: text})
	return nil
}

func (m *mockSurface) Play(_ context.Context, d session.DeckID) error {
	if err := m.record("play", string(d), 0, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing[d] = true
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) Pause(_ context.Context, d session.DeckID) error {
	if err := m.record("pause", string(d), 0, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing[d] = false
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) Seek(_ context.Context, d session.DeckID, pos float64) error {
	return m.record("seek", string(d), pos, "")
}

func (m *mockSurface) SetVolume(_ context.Context, t Target, v float64) error {
	if err := m.record("set_volume", string(t), v, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.volume[t] = v
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) SetCrossfader(_ context.Context, v float64) error {
	if err := m.record("set_crossfader", "master", v, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.crossfader = append(m.crossfader, v)
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) SetGain(_ context.Context, d session.DeckID, v float64) error {
	return m.record("set_gain", string(d), v, "")
}

func (m *mockSurface) SetEQ(_ context.Context, d session.DeckID, band EQBand, v float64) error {
	if err := m.record("set_eq", string(d), v, string(band)); err != nil {
		return err
	}
	m.mu.Lock()
	m.eq[band] = v
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) ApplyEffect(_ context.Context, d session.DeckID, effect string, intensity float64) error {
	return m.record("apply_effect", string(d), intensity, effect)
}

func (m *mockSurface) RemoveEffect(_ context.Context, d session.DeckID, effect string) error {
	return m.record("remove_effect", string(d), 0, effect)
}

func (m *mockSurface) SetLoop(_ context.Context, d session.DeckID, beats int, _ bool) error {
	return m.record("set_loop", string(d), float64(beats), "")
}

func (m *mockSurface) TriggerHotCue(_ context.Context, d session.DeckID, cue int) error {
	return m.record("trigger_hotcue", string(d), float64(cue), "")
}

func (m *mockSurface) SetTempo(_ context.Context, d session.DeckID, v float64) error {
	if err := m.record("set_tempo", string(d), v, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.tempo[d] = v
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) SetFilter(_ context.Context, d session.DeckID, v float64) error {
	return m.record("set_filter", string(d), v, "")
}

func (m *mockSurface) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *mockSurface) last(method string) (surfaceCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			return m.calls[i], true
		}
	}
	return surfaceCall{}, false
}

func (m *mockSurface) crossfaderValues() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.crossfader...)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// fastConfig runs ramps at 1/100th real time.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.TimeScale = 0.01
	return cfg
}

func newTestExecutor(t *testing.T, cfg Config) (*Executor, *mockSurface) {
	t.Helper()
	surface := newMockSurface()
	e := NewExecutor(surface, cfg)
	t.Cleanup(e.Close)
	return e, surface
}

func waitTask(t *testing.T, task *Task) error {
	t.Helper()
	select {
	case <-task.Done():
		return task.Err()
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestEaseInOutCubic(t *testing.T) {
	if EaseInOutCubic(0) != 0 || EaseInOutCubic(1) != 1 || EaseInOutCubic(0.5) != 0.5 {
		t.Errorf("EaseInOutCubic endpoints wrong: %v %v %v", EaseInOutCubic(0), EaseInOutCubic(0.5), EaseInOutCubic(1))
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseInOutCubic(float64(i) / 100)
		if v < prev {
			t.Fatalf("EaseInOutCubic not monotonic at %d", i)
		}
		prev = v
	}
}

func TestExecutor_StartMix(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())

	switched := make(chan session.DeckID, 1)
	e.OnDeckSwitch(func(d session.DeckID) { switched <- d })

	task, err := e.StartMix(context.Background(), session.DeckB, 2)
	if err != nil {
		t.Fatalf("StartMix() error = %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("ramp error = %v", err)
	}

	if surface.count("play") != 1 {
		t.Errorf("play calls = %d, want 1", surface.count("play"))
	}
	values := surface.crossfaderValues()
	if len(values) != DefaultConfig().CrossfadeSteps {
		t.Errorf("crossfader steps = %d, want %d", len(values), DefaultConfig().CrossfadeSteps)
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("crossfader moved backwards at step %d: %v -> %v", i, values[i-1], values[i])
		}
	}
	if values[len(values)-1] != 1 {
		t.Errorf("final crossfader = %v, want 1", values[len(values)-1])
	}
	if e.CurrentDeck() != session.DeckB {
		t.Errorf("CurrentDeck() = %s, want B", e.CurrentDeck())
	}
	select {
	case d := <-switched:
		if d != session.DeckB {
			t.Errorf("OnDeckSwitch(%s), want B", d)
		}
	case <-time.After(time.Second):
		t.Error("OnDeckSwitch not called")
	}
	if e.ActiveRamps() != 0 {
		t.Errorf("ActiveRamps() = %d, want 0", e.ActiveRamps())
	}
}

func TestExecutor_StartMixTwiceKeepsRunningMix(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())
	ctx := context.Background()

	first, err := e.StartMix(ctx, session.DeckB, 50)
	if err != nil {
		t.Fatalf("first StartMix() error = %v", err)
	}
	waitFor(t, func() bool { return len(surface.crossfaderValues()) > 0 })
	if !e.MixInProgress() {
		t.Error("MixInProgress() = false during the ramp")
	}

	second, err := e.StartMix(ctx, session.DeckB, 1)
	if err != nil {
		t.Fatalf("second StartMix() error = %v", err)
	}
	if second != first {
		t.Error("second StartMix() started a new ramp, want the running one")
	}
	if n := surface.count("play"); n != 1 {
		t.Errorf("play calls = %d, want 1", n)
	}
	if n := e.ActiveRamps(); n != 1 {
		t.Errorf("ActiveRamps() = %d, want 1", n)
	}
	if err := waitTask(t, first); err != nil {
		t.Fatalf("ramp error = %v", err)
	}

	values := surface.crossfaderValues()
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("crossfader moved backwards at step %d: %v -> %v", i, values[i-1], values[i])
		}
	}
	if values[len(values)-1] != 1 {
		t.Errorf("final crossfader = %v, want 1", values[len(values)-1])
	}
	if e.MixInProgress() {
		t.Error("MixInProgress() = true after the ramp")
	}
}

func TestExecutor_StartMixAfterCompletionRestarts(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		task, err := e.StartMix(ctx, session.DeckB, 1)
		if err != nil {
			t.Fatalf("StartMix() #%d error = %v", i, err)
		}
		if err := waitTask(t, task); err != nil {
			t.Fatalf("ramp #%d error = %v", i, err)
		}
	}
	if n := surface.count("play"); n != 2 {
		t.Errorf("play calls = %d, want 2", n)
	}
}

func TestExecutor_RampStartsWhereReplacedRampStopped(t *testing.T) {
	tests := []struct {
		name    string
		replace func(e *Executor) *Task
	}{
		{"crossfade", func(e *Executor) *Task { return e.Crossfade(1, 10*time.Millisecond) }},
		{"mix to other deck", func(e *Executor) *Task {
			task, err := e.StartMix(context.Background(), session.DeckB, 1)
			if err != nil {
				t.Fatalf("StartMix() error = %v", err)
			}
			return task
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, surface := newTestExecutor(t, fastConfig())

			first := e.Crossfade(1, 200*time.Second)
			waitFor(t, func() bool { return len(surface.crossfaderValues()) > 3 })

			second := tt.replace(e)
			if err := waitTask(t, first); !errors.Is(err, context.Canceled) {
				t.Errorf("first ramp error = %v, want context.Canceled", err)
			}
			if err := waitTask(t, second); err != nil {
				t.Fatalf("second ramp error = %v", err)
			}

			values := surface.crossfaderValues()
			for i := 1; i < len(values); i++ {
				if values[i] < values[i-1] {
					t.Fatalf("crossfader jumped back at write %d: %v -> %v", i, values[i-1], values[i])
				}
			}
			if values[len(values)-1] != 1 {
				t.Errorf("final crossfader = %v, want 1", values[len(values)-1])
			}
		})
	}
}

func TestExecutor_StartMixDecisionBeatmatches(t *testing.T) {
	cfg := fastConfig()
	cfg.BeatmatchInterval = time.Millisecond
	e, surface := newTestExecutor(t, cfg)

	d := decision.NewDecision(decision.ActionStartMix, 0.9, "mix",
		decision.Params{Deck: session.DeckB, Timing: 2, Tempo: -0.75})
	if !e.ExecuteDecision(context.Background(), d) {
		t.Fatal("ExecuteDecision(start_mix) = false")
	}
	if task := e.Ramp(deckSlot(session.DeckB)); task != nil {
		_ = waitTask(t, task)
	}
	waitFor(t, func() bool {
		surface.mu.Lock()
		defer surface.mu.Unlock()
		return surface.tempo[session.DeckB] == -0.75
	})
	if call, ok := surface.last("set_tempo"); !ok || call.Target != "B" {
		t.Errorf("last set_tempo = %+v, want deck B", call)
	}
}

func TestExecutor_EmergencyStopPreemptsRamps(t *testing.T) {
	cfg := fastConfig()
	cfg.EffectHold = time.Hour
	e, surface := newTestExecutor(t, cfg)
	ctx := context.Background()

	mix, err := e.StartMix(ctx, session.DeckB, 50)
	if err != nil {
		t.Fatalf("StartMix() error = %v", err)
	}
	fade, err := e.FadeVolume(TargetMaster, 0.2, time.Hour)
	if err != nil {
		t.Fatalf("FadeVolume() error = %v", err)
	}
	if err := e.ApplyEffect(ctx, session.DeckA, "echo", 0.5); err != nil {
		t.Fatalf("ApplyEffect() error = %v", err)
	}
	waitFor(t, func() bool { return len(surface.crossfaderValues()) > 0 })

	if err := e.EmergencyStop(ctx); err != nil {
		t.Fatalf("EmergencyStop() error = %v", err)
	}

	if !errors.Is(mix.Err(), context.Canceled) || !errors.Is(fade.Err(), context.Canceled) {
		t.Errorf("ramps not cancelled: mix=%v fade=%v", mix.Err(), fade.Err())
	}
	if e.ActiveRamps() != 0 || e.PendingEffects() != 0 {
		t.Errorf("ActiveRamps/PendingEffects = %d/%d, want 0/0", e.ActiveRamps(), e.PendingEffects())
	}

	surface.mu.Lock()
	for _, target := range []Target{TargetA, TargetB, TargetMaster} {
		if surface.volume[target] != 0 {
			t.Errorf("volume[%s] = %v, want 0", target, surface.volume[target])
		}
	}
	for _, d := range []session.DeckID{session.DeckA, session.DeckB} {
		if surface.playing[d] {
			t.Errorf("deck %s still playing", d)
		}
	}
	surface.mu.Unlock()

	writes := len(surface.crossfaderValues())
	time.Sleep(30 * time.Millisecond)
	if got := len(surface.crossfaderValues()); got != writes {
		t.Errorf("crossfader written after emergency stop: %d -> %d", writes, got)
	}
	if surface.count("remove_effect") != 0 {
		t.Error("cancelled effect removal still ran")
	}
}

func TestExecutor_EmergencyStopReportsFailuresButContinues(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())
	surface.failOn = "pause"

	if err := e.EmergencyStop(context.Background()); err == nil {
		t.Fatal("EmergencyStop() error = nil, want pause failure")
	}
	if surface.count("set_volume") != 3 {
		t.Errorf("set_volume calls = %d, want 3", surface.count("set_volume"))
	}
}

func TestExecutor_EmergencyStopIgnoresCancelledContext(t *testing.T) {
	pub := &mockPublisher{}
	e := NewExecutor(NewMQTTSurface(pub, testTopic), fastConfig())
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.EmergencyStop(ctx); err != nil {
		t.Fatalf("EmergencyStop() error = %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	var volumes, pauses int
	for _, m := range pub.messages {
		switch m.Payload.Command {
		case "set_volume":
			volumes++
		case "pause":
			pauses++
		}
	}
	if volumes != 3 || pauses != 2 {
		t.Errorf("published set_volume/pause = %d/%d, want 3/2", volumes, pauses)
	}
}

func TestExecutor_EffectAutoRemoval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EffectHold = 10 * time.Millisecond
	e, surface := newTestExecutor(t, cfg)

	if err := e.ApplyEffect(context.Background(), session.DeckA, "flanger", 0.6); err != nil {
		t.Fatalf("ApplyEffect() error = %v", err)
	}
	waitFor(t, func() bool { return surface.count("remove_effect") == 1 })

	call, _ := surface.last("remove_effect")
	if call.Text != "flanger" || call.Target != "A" {
		t.Errorf("remove_effect = %+v", call)
	}
	waitFor(t, func() bool { return e.PendingEffects() == 0 })
}

func TestExecutor_ReapplyEffectRestartsHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EffectHold = 200 * time.Millisecond
	e, surface := newTestExecutor(t, cfg)
	ctx := context.Background()

	_ = e.ApplyEffect(ctx, session.DeckB, "echo", 0.5)
	time.Sleep(20 * time.Millisecond)
	_ = e.ApplyEffect(ctx, session.DeckB, "echo", 0.5)

	waitFor(t, func() bool { return surface.count("remove_effect") >= 1 })
	time.Sleep(250 * time.Millisecond)
	if n := surface.count("remove_effect"); n != 1 {
		t.Errorf("remove_effect calls = %d, want 1", n)
	}
}

func TestExecutor_AdjustEQPresets(t *testing.T) {
	tests := []struct {
		value    float64
		wantHigh float64
	}{
		{0.3, 0.3},
		{-0.3, -0.3},
		{0.05, 0},
	}
	for _, tt := range tests {
		e, surface := newTestExecutor(t, fastConfig())
		if err := e.AdjustEQ(context.Background(), session.DeckA, tt.value); err != nil {
			t.Fatalf("AdjustEQ(%v) error = %v", tt.value, err)
		}
		if surface.count("set_eq") != 3 {
			t.Errorf("AdjustEQ(%v) set_eq calls = %d, want 3", tt.value, surface.count("set_eq"))
		}
		if surface.eq[EQHigh] != tt.wantHigh {
			t.Errorf("AdjustEQ(%v) high = %v, want %v", tt.value, surface.eq[EQHigh], tt.wantHigh)
		}
	}
}

func TestExecutor_ExecuteDecisionPassThrough(t *testing.T) {
	tests := []struct {
		name      string
		d         decision.Decision
		want      bool
		method    string
		wantValue float64
	}{
		{"loop default beats", decision.Decision{Action: decision.ActionSetLoop}, true, "set_loop", 4},
		{"loop explicit", decision.Decision{Action: decision.ActionSetLoop, Params: decision.Params{Beats: 8}}, true, "set_loop", 8},
		{"hotcue default", decision.Decision{Action: decision.ActionTriggerHotCue}, true, "trigger_hotcue", 1},
		{"tempo", decision.Decision{Action: decision.ActionChangeTempo, Params: decision.Params{Tempo: 1.5}}, true, "set_tempo", 1.5},
		{"eq", decision.Decision{Action: decision.ActionAdjustEQ, Params: decision.Params{Value: 0.4}}, true, "set_eq", 0.3},
		{"effect", decision.Decision{Action: decision.ActionApplyEffect, Params: decision.Params{Effect: "delay", Intensity: 0.3}}, true, "apply_effect", 0.3},
		{"wait", decision.Decision{Action: decision.ActionWait}, true, "", 0},
		{"unknown", decision.Decision{Action: "scratch"}, false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, surface := newTestExecutor(t, fastConfig())
			if got := e.ExecuteDecision(context.Background(), tt.d); got != tt.want {
				t.Fatalf("ExecuteDecision() = %v, want %v", got, tt.want)
			}
			if tt.method == "" {
				return
			}
			call, ok := surface.last(tt.method)
			if !ok {
				t.Fatalf("%s not called", tt.method)
			}
			if call.Value != tt.wantValue {
				t.Errorf("%s value = %v, want %v", tt.method, call.Value, tt.wantValue)
			}
			if call.Target != "A" {
				t.Errorf("%s target = %s, want current deck A", tt.method, call.Target)
			}
		})
	}
}

func TestExecutor_ExecuteDecisionSurfaceFailure(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())
	surface.failOn = "play"

	d := decision.NewDecision(decision.ActionStartMix, 0.9, "mix", decision.Params{Deck: session.DeckB, Timing: 16})
	if e.ExecuteDecision(context.Background(), d) {
		t.Error("ExecuteDecision() = true, want false on surface failure")
	}
	if e.ActiveRamps() != 0 {
		t.Errorf("ActiveRamps() = %d, want 0", e.ActiveRamps())
	}
}

func TestExecutor_CrossfadeDecision(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())
	target := 0.25

	d := decision.Decision{Action: decision.ActionCrossfade, Params: decision.Params{Target: &target, Duration: 1}}
	if !e.ExecuteDecision(context.Background(), d) {
		t.Fatal("ExecuteDecision(crossfade) = false")
	}
	task := e.Ramp(slotCrossfader)
	if task != nil {
		_ = waitTask(t, task)
	}
	waitFor(t, func() bool { return e.Crossfader() == 0.25 })

	values := surface.crossfaderValues()
	if values[len(values)-1] != 0.25 {
		t.Errorf("final crossfader = %v, want 0.25", values[len(values)-1])
	}
}

func TestExecutor_Beatmatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BeatmatchInterval = time.Millisecond
	e, surface := newTestExecutor(t, cfg)

	if err := waitTask(t, e.Beatmatch(session.DeckB, 2)); err != nil {
		t.Fatalf("Beatmatch error = %v", err)
	}
	if n := surface.count("set_tempo"); n != 20 {
		t.Errorf("set_tempo calls = %d, want 20", n)
	}
	if surface.tempo[session.DeckB] != 2 {
		t.Errorf("tempo = %v, want 2", surface.tempo[session.DeckB])
	}
	first := surface.calls[0]
	if first.Value != 0.1 {
		t.Errorf("first tempo step = %v, want 0.1", first.Value)
	}
}

func TestExecutor_FadeVolume(t *testing.T) {
	e, surface := newTestExecutor(t, fastConfig())

	task, err := e.FadeVolume(TargetA, 0, time.Second)
	if err != nil {
		t.Fatalf("FadeVolume() error = %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("fade error = %v", err)
	}
	if n := surface.count("set_volume"); n != 50 {
		t.Errorf("set_volume calls = %d, want 50", n)
	}
	if surface.volume[TargetA] != 0 {
		t.Errorf("volume A = %v, want 0", surface.volume[TargetA])
	}

	if _, err := e.FadeVolume("C", 1, time.Second); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("FadeVolume(C) error = %v, want ErrInvalidTarget", err)
	}
}

func TestExecutor_EnergyTransition(t *testing.T) {
	tests := []struct {
		target     float64
		wantMethod string
		wantHigh   float64
	}{
		{0.9, "set_filter", 0.3},
		{0.1, "apply_effect", -0.3},
		{0.5, "set_eq", 0},
	}
	for _, tt := range tests {
		e, surface := newTestExecutor(t, fastConfig())
		if err := e.EnergyTransition(context.Background(), session.DeckA, tt.target); err != nil {
			t.Fatalf("EnergyTransition(%v) error = %v", tt.target, err)
		}
		if surface.count(tt.wantMethod) == 0 {
			t.Errorf("EnergyTransition(%v) did not call %s", tt.target, tt.wantMethod)
		}
		if surface.eq[EQHigh] != tt.wantHigh {
			t.Errorf("EnergyTransition(%v) high EQ = %v, want %v", tt.target, surface.eq[EQHigh], tt.wantHigh)
		}
	}
}

func TestExecutor_ClosedRejectsWork(t *testing.T) {
	e, _ := newTestExecutor(t, fastConfig())
	e.Close()

	if _, err := e.StartMix(context.Background(), session.DeckB, 1); !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("StartMix() error = %v, want ErrExecutorClosed", err)
	}
	if e.ExecuteDecision(context.Background(), decision.Decision{Action: decision.ActionWait}) {
		t.Error("ExecuteDecision() = true on closed executor")
	}
}

func TestExecutor_Sync(t *testing.T) {
	e, _ := newTestExecutor(t, fastConfig())
	e.Sync(session.Context{
		ActiveDeck: session.DeckB,
		Mixer:      session.MixerState{Crossfader: 1, MasterVolume: 0.8},
	})

	if e.CurrentDeck() != session.DeckB || e.Crossfader() != 1 {
		t.Errorf("after Sync: deck %s, crossfader %v", e.CurrentDeck(), e.Crossfader())
	}
}
