package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Ramp slot keys.
const (
	slotCrossfader = "crossfader"
	slotMaster     = "master"
)

func deckSlot(d session.DeckID) string {
	return "deck:" + string(d)
}

// Parameter defaults for pass-through actions.
const (
	defaultLoopBeats       = 4
	defaultHotCue          = 1
	defaultCrossfadeTime   = 8.0 // seconds
	eqPresetThreshold      = 0.1
	highEnergyThreshold    = 0.7
	lowEnergyThreshold     = 0.3
	highEnergyFilter       = 0.7
	transitionEffectAmount = 0.4
)

// Config tunes ramp resolution and timing.
type Config struct {
	// CrossfadeSteps is the step count for start_mix and crossfade ramps.
	CrossfadeSteps int
	// EffectHold is how long an applied effect stays on before removal.
	EffectHold time.Duration
	// BeatmatchSteps and BeatmatchInterval shape the tempo ramp.
	BeatmatchSteps    int
	BeatmatchInterval time.Duration
	// FadeSteps is the step count for volume fades.
	FadeSteps int
	// TimeScale multiplies every delay; 1 is real time.
	TimeScale float64
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		CrossfadeSteps:    50,
		EffectHold:        8 * time.Second,
		BeatmatchSteps:    20,
		BeatmatchInterval: 100 * time.Millisecond,
		FadeSteps:         50,
		TimeScale:         1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CrossfadeSteps <= 0 {
		c.CrossfadeSteps = d.CrossfadeSteps
	}
	if c.EffectHold <= 0 {
		c.EffectHold = d.EffectHold
	}
	if c.BeatmatchSteps <= 0 {
		c.BeatmatchSteps = d.BeatmatchSteps
	}
	if c.BeatmatchInterval <= 0 {
		c.BeatmatchInterval = d.BeatmatchInterval
	}
	if c.FadeSteps <= 0 {
		c.FadeSteps = d.FadeSteps
	}
	if c.TimeScale <= 0 {
		c.TimeScale = d.TimeScale
	}
	return c
}

// Logger defines the logging interface used by the Executor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// levels is the executor's view of the controls it drives.
type levels struct {
	crossfader float64
	volume     map[Target]float64
	tempo      map[session.DeckID]float64
	current    session.DeckID
}

// Executor converts decisions into control-surface calls.
//
// Thread Safety: all methods are safe for concurrent use.
type Executor struct {
	surface ControlSurface
	cfg     Config

	base context.Context
	stop context.CancelFunc

	ramps   *taskSet
	effects *taskSet

	mu       sync.Mutex
	levels   levels
	onSwitch func(session.DeckID)

	// mixing is the incoming deck of the start_mix ramp in flight, empty
	// when the crossfader slot holds no mix. mixGen identifies that ramp.
	mixing session.DeckID
	mixGen uint64

	logger Logger
}

// NewExecutor creates an executor driving the given surface.
//
// Ramps run on the executor's own context, not the caller's, so they
// outlive the request that started them. Call Close to stop everything.
func NewExecutor(surface ControlSurface, cfg Config) *Executor {
	base, cancel := context.WithCancel(context.Background())
	return &Executor{
		surface: surface,
		cfg:     cfg.withDefaults(),
		base:    base,
		stop:    cancel,
		ramps:   newTaskSet(),
		effects: newTaskSet(),
		levels: levels{
			volume:  map[Target]float64{TargetA: 1, TargetB: 1, TargetMaster: 1},
			tempo:   map[session.DeckID]float64{session.DeckA: 0, session.DeckB: 0},
			current: session.DeckA,
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	e.logger = logger
}

// OnDeckSwitch registers a callback fired when a mix completes and the
// incoming deck becomes current.
func (e *Executor) OnDeckSwitch(fn func(session.DeckID)) {
	e.mu.Lock()
	e.onSwitch = fn
	e.mu.Unlock()
}

// Sync refreshes the executor's cached levels from a session snapshot.
func (e *Executor) Sync(s session.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.levels.crossfader = s.Mixer.Crossfader
	e.levels.volume[TargetMaster] = s.Mixer.MasterVolume
	e.levels.volume[TargetA] = s.DeckA.Volume
	e.levels.volume[TargetB] = s.DeckB.Volume
	e.levels.tempo[session.DeckA] = s.DeckA.Tempo
	e.levels.tempo[session.DeckB] = s.DeckB.Tempo
	if s.ActiveDeck.Valid() {
		e.levels.current = s.ActiveDeck
	}
}

// CurrentDeck returns the deck the executor considers audible.
func (e *Executor) CurrentDeck() session.DeckID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels.current
}

// Crossfader returns the last crossfader position written.
func (e *Executor) Crossfader() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels.crossfader
}

// ActiveRamps returns the number of ramps in flight.
func (e *Executor) ActiveRamps() int {
	return e.ramps.len()
}

// PendingEffects returns the number of effects awaiting automatic removal.
func (e *Executor) PendingEffects() int {
	return e.effects.len()
}

// MixInProgress reports whether a start_mix ramp is still moving the
// crossfader.
func (e *Executor) MixInProgress() bool {
	_, task := e.runningMix()
	return task != nil
}

// runningMix returns the incoming deck and ramp of the start_mix still in
// flight, or a nil task. A ramp cancelled before its first step never
// clears mixing, so the task's own state decides.
func (e *Executor) runningMix() (session.DeckID, *Task) {
	e.mu.Lock()
	mixing := e.mixing
	e.mu.Unlock()
	if mixing == "" {
		return "", nil
	}
	task := e.ramps.get(slotCrossfader)
	if task == nil {
		return "", nil
	}
	select {
	case <-task.Done():
		return "", nil
	default:
		return mixing, task
	}
}

// Ramp returns the ramp running on a slot, or nil.
func (e *Executor) Ramp(slot string) *Task {
	return e.ramps.get(slot)
}

// Close cancels all running work and waits for it to stop.
func (e *Executor) Close() {
	e.stop()
	e.ramps.cancelAll()
	e.effects.cancelAll()
}

func (e *Executor) scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) * e.cfg.TimeScale)
}

// ExecuteDecision performs a decision against the control surface.
//
// Discrete actions complete before it returns; ramps are started and run
// in the background. Surface failures are logged and reported as false.
// Unknown actions are logged and ignored.
func (e *Executor) ExecuteDecision(ctx context.Context, d decision.Decision) bool {
	if err := e.base.Err(); err != nil {
		e.logger.Warn("executor closed, decision dropped", "decision_id", d.ID, "action", d.Action)
		return false
	}

	deck := d.Params.Deck
	if !deck.Valid() {
		deck = e.CurrentDeck()
	}

	var err error
	switch d.Action {
	case decision.ActionStartMix:
		incoming := d.Params.Deck
		if !incoming.Valid() {
			incoming = e.CurrentDeck().Other()
		}
		_, err = e.StartMix(ctx, incoming, d.Params.Timing)
		if err == nil && d.Params.Tempo != 0 {
			e.Beatmatch(incoming, d.Params.Tempo)
		}
	case decision.ActionApplyEffect:
		err = e.ApplyEffect(ctx, deck, d.Params.Effect, d.Params.Intensity)
	case decision.ActionAdjustEQ:
		err = e.AdjustEQ(ctx, deck, d.Params.Value)
	case decision.ActionSetLoop:
		beats := d.Params.Beats
		if beats <= 0 {
			beats = defaultLoopBeats
		}
		err = e.surface.SetLoop(ctx, deck, beats, true)
	case decision.ActionTriggerHotCue:
		cue := d.Params.Cue
		if cue <= 0 {
			cue = defaultHotCue
		}
		err = e.surface.TriggerHotCue(ctx, deck, cue)
	case decision.ActionChangeTempo:
		err = e.setTempo(ctx, deck, d.Params.Tempo)
	case decision.ActionCrossfade:
		target := 1 - e.edge(e.CurrentDeck())
		if d.Params.Target != nil {
			target = session.Clamp01(*d.Params.Target)
		}
		duration := d.Params.Duration
		if duration <= 0 {
			duration = defaultCrossfadeTime
		}
		e.Crossfade(target, secondsToDuration(duration))
	case decision.ActionWait:
	default:
		e.logger.Warn("unsupported decision action", "decision_id", d.ID, "action", d.Action)
		return false
	}

	if err != nil {
		e.logger.Error("decision execution failed",
			"decision_id", d.ID,
			"action", d.Action,
			"error", err,
		)
		return false
	}

	e.logger.Info("decision executed",
		"decision_id", d.ID,
		"action", d.Action,
		"deck", deck,
		"confidence", d.Confidence,
	)
	return true
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// edge is the crossfader position at which only deck d is audible.
func (e *Executor) edge(d session.DeckID) float64 {
	if d == session.DeckB {
		return 1
	}
	return 0
}

// StartMix plays the incoming deck and ramps the crossfader from its current
// position to the incoming deck's edge over timingSec seconds. When the
// ramp completes the incoming deck becomes current.
//
// A mix already running towards the same deck is left alone and its task
// returned, so repeated start_mix decisions during a transition do not
// restart it.
func (e *Executor) StartMix(ctx context.Context, incoming session.DeckID, timingSec float64) (*Task, error) {
	if !incoming.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, incoming)
	}
	if err := e.base.Err(); err != nil {
		return nil, ErrExecutorClosed
	}
	if timingSec <= 0 {
		timingSec = defaultCrossfadeTime
	}

	if mixing, running := e.runningMix(); running != nil && mixing == incoming {
		e.logger.Debug("mix already in progress", "incoming", incoming)
		return running, nil
	}

	if err := e.surface.Play(ctx, incoming); err != nil {
		return nil, fmt.Errorf("playing deck %s: %w", incoming, err)
	}

	to := e.edge(incoming)
	duration := secondsToDuration(timingSec)

	e.mu.Lock()
	e.mixGen++
	gen := e.mixGen
	e.mixing = incoming
	e.mu.Unlock()

	task := e.ramps.start(e.base, slotCrossfader, func(ctx context.Context) error {
		defer e.endMix(gen)

		err := e.runRamp(ctx, e.cfg.CrossfadeSteps, duration, EaseInOutCubic, e.Crossfader(), to, e.writeCrossfader)
		if err != nil {
			return err
		}

		e.mu.Lock()
		e.levels.current = incoming
		onSwitch := e.onSwitch
		e.mu.Unlock()

		e.logger.Info("mix complete", "current_deck", incoming)
		if onSwitch != nil {
			onSwitch(incoming)
		}
		return nil
	})
	return task, nil
}

// endMix clears the in-flight mix if gen is still the latest one.
func (e *Executor) endMix(gen uint64) {
	e.mu.Lock()
	if e.mixGen == gen {
		e.mixing = ""
	}
	e.mu.Unlock()
}

// Crossfade ramps the crossfader to target over duration. It replaces any
// mix in flight.
func (e *Executor) Crossfade(target float64, duration time.Duration) *Task {
	target = session.Clamp01(target)

	e.mu.Lock()
	e.mixGen++
	e.mixing = ""
	e.mu.Unlock()

	return e.ramps.start(e.base, slotCrossfader, func(ctx context.Context) error {
		return e.runRamp(ctx, e.cfg.CrossfadeSteps, duration, EaseInOutCubic, e.Crossfader(), target, e.writeCrossfader)
	})
}

// Beatmatch ramps a deck's tempo linearly to targetPercent.
func (e *Executor) Beatmatch(deck session.DeckID, targetPercent float64) *Task {
	steps := e.cfg.BeatmatchSteps
	duration := e.cfg.BeatmatchInterval * time.Duration(steps)
	return e.ramps.start(e.base, deckSlot(deck), func(ctx context.Context) error {
		return e.runRamp(ctx, steps, duration, Linear, e.tempo(deck), targetPercent, func(ctx context.Context, v float64) error {
			return e.setTempo(ctx, deck, v)
		})
	})
}

// FadeVolume ramps a deck channel or the master volume to level.
func (e *Executor) FadeVolume(target Target, level float64, duration time.Duration) (*Task, error) {
	slot, err := volumeSlot(target)
	if err != nil {
		return nil, err
	}

	level = session.Clamp01(level)
	return e.ramps.start(e.base, slot, func(ctx context.Context) error {
		return e.runRamp(ctx, e.cfg.FadeSteps, duration, EaseInOutCubic, e.volume(target), level, func(ctx context.Context, v float64) error {
			return e.setVolume(ctx, target, v)
		})
	}), nil
}

func volumeSlot(t Target) (string, error) {
	switch t {
	case TargetA, TargetB:
		return deckSlot(session.DeckID(t)), nil
	case TargetMaster:
		return slotMaster, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, t)
	}
}

// ApplyEffect turns an effect on and schedules its removal after the
// configured hold. Re-applying the same effect restarts the hold.
func (e *Executor) ApplyEffect(ctx context.Context, deck session.DeckID, effect string, intensity float64) error {
	if effect == "" {
		effect = decision.Effects[0]
	}
	if err := e.surface.ApplyEffect(ctx, deck, effect, session.Clamp01(intensity)); err != nil {
		return fmt.Errorf("applying %s on deck %s: %w", effect, deck, err)
	}

	hold := e.scaled(e.cfg.EffectHold)
	e.effects.start(e.base, string(deck)+"|"+effect, func(ctx context.Context) error {
		timer := time.NewTimer(hold)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := e.surface.RemoveEffect(ctx, deck, effect); err != nil {
			e.logger.Error("effect removal failed", "deck", deck, "effect", effect, "error", err)
			return err
		}
		return nil
	})
	return nil
}

// AdjustEQ applies the boost, cut or flat preset according to the sign of value.
func (e *Executor) AdjustEQ(ctx context.Context, deck session.DeckID, value float64) error {
	preset := eqFlat
	switch {
	case value > eqPresetThreshold:
		preset = eqBoost
	case value < -eqPresetThreshold:
		preset = eqCut
	}
	return e.applyEQ(ctx, deck, preset)
}

func (e *Executor) applyEQ(ctx context.Context, deck session.DeckID, preset eqPreset) error {
	for _, band := range eqBands {
		if err := e.surface.SetEQ(ctx, deck, band, preset[band]); err != nil {
			return fmt.Errorf("setting %s EQ on deck %s: %w", band, deck, err)
		}
	}
	return nil
}

// EnergyTransition shapes a deck towards a target energy: high targets boost
// the highs and open the filter, low targets cut the highs and add reverb,
// anything else flattens the EQ.
func (e *Executor) EnergyTransition(ctx context.Context, deck session.DeckID, target float64) error {
	switch {
	case target > highEnergyThreshold:
		if err := e.surface.SetEQ(ctx, deck, EQHigh, eqBoost[EQHigh]); err != nil {
			return err
		}
		return e.surface.SetFilter(ctx, deck, highEnergyFilter)
	case target < lowEnergyThreshold:
		if err := e.surface.SetEQ(ctx, deck, EQHigh, eqCut[EQHigh]); err != nil {
			return err
		}
		return e.ApplyEffect(ctx, deck, "reverb", transitionEffectAmount)
	default:
		return e.applyEQ(ctx, deck, eqFlat)
	}
}

// EmergencyStop cancels every ramp and pending effect removal, then sets
// both deck volumes and the master volume to zero and pauses both decks.
// Every call is attempted even if earlier ones fail, and cancellation of
// ctx does not skip any of them: only its values are kept.
func (e *Executor) EmergencyStop(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	e.ramps.cancelAll()
	e.effects.cancelAll()

	var errs []error
	for _, t := range []Target{TargetA, TargetB, TargetMaster} {
		if err := e.setVolume(ctx, t, 0); err != nil {
			errs = append(errs, fmt.Errorf("silencing %s: %w", t, err))
		}
	}
	for _, d := range []session.DeckID{session.DeckA, session.DeckB} {
		if err := e.surface.Pause(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("pausing deck %s: %w", d, err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		e.logger.Error("emergency stop incomplete", "error", err)
	} else {
		e.logger.Warn("emergency stop executed")
	}
	return err
}

// runRamp writes steps values from..to, one every duration/steps.
// The final step writes exactly to.
func (e *Executor) runRamp(ctx context.Context, steps int, duration time.Duration, ease Easing, from, to float64,
	apply func(ctx context.Context, v float64) error,
) error {
	if steps <= 0 {
		steps = 1
	}
	interval := e.scaled(duration) / time.Duration(steps)
	ticker := time.NewTicker(max(interval, time.Microsecond))
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		v := to
		if i < steps {
			v = from + (to-from)*ease(float64(i)/float64(steps))
		}
		if err := apply(ctx, v); err != nil {
			e.logger.Error("ramp step failed", "step", i, "value", v, "error", err)
			return err
		}
	}
	return nil
}

func (e *Executor) writeCrossfader(ctx context.Context, v float64) error {
	if err := e.surface.SetCrossfader(ctx, v); err != nil {
		return err
	}
	e.mu.Lock()
	e.levels.crossfader = v
	e.mu.Unlock()
	return nil
}

func (e *Executor) setVolume(ctx context.Context, t Target, v float64) error {
	if err := e.surface.SetVolume(ctx, t, v); err != nil {
		return err
	}
	e.mu.Lock()
	e.levels.volume[t] = v
	e.mu.Unlock()
	return nil
}

func (e *Executor) tempo(deck session.DeckID) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels.tempo[deck]
}

func (e *Executor) volume(t Target) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels.volume[t]
}

func (e *Executor) setTempo(ctx context.Context, deck session.DeckID, v float64) error {
	if err := e.surface.SetTempo(ctx, deck, v); err != nil {
		return err
	}
	e.mu.Lock()
	e.levels.tempo[deck] = v
	e.mu.Unlock()
	return nil
}
