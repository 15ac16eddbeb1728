package session

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/track"
)

// Monitor sizing and thresholds.
const (
	recentTrackCapacity  = 20
	recentActionCapacity = 50
	trendWindow          = 3
	trendThreshold       = 0.05
	defaultTickInterval  = time.Second
	defaultCrowdEnergy   = 0.5
	defaultTargetEnergy  = 0.7
	neutralSetEnergy     = 0.5
)

// Logger defines the logging interface used by the Monitor.
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

// Observer receives a fresh snapshot after every mutation and tick.
type Observer func(Context)

type recentTrack struct {
	id     string
	energy float64
}

// Monitor is the authoritative live session state.
//
// All public methods are thread-safe.
type Monitor struct {
	mu sync.RWMutex

	decks      map[DeckID]*DeckState
	mixer      MixerState
	activeDeck DeckID

	recent  []recentTrack // newest first
	actions []ActionRecord

	crowdEnergy   float64
	crowdReported bool
	targetEnergy  float64

	sessionStart    time.Time
	sessionDuration time.Duration
	trend           Trend

	clock  func() time.Time
	logger Logger

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

// NewMonitor creates a monitor with both decks empty and the session clock started.
func NewMonitor() *Monitor {
	m := &Monitor{
		decks: map[DeckID]*DeckState{
			DeckA: {Volume: 1},
			DeckB: {Volume: 1},
		},
		mixer:        MixerState{Crossfader: 0, MasterVolume: 1},
		activeDeck:   DeckA,
		crowdEnergy:  defaultCrowdEnergy,
		targetEnergy: defaultTargetEnergy,
		trend:        TrendStable,
		clock:        time.Now,
		logger:       noopLogger{},
		observers:    make(map[int]Observer),
	}
	m.sessionStart = m.clock()
	return m
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// SetClock replaces the time source and restarts the session clock.
// Intended for tests and replays.
func (m *Monitor) SetClock(clock func() time.Time) {
	m.mu.Lock()
	m.clock = clock
	m.sessionStart = clock()
	m.sessionDuration = 0
	m.mu.Unlock()
}

// Subscribe registers an observer and returns its ID.
func (m *Monitor) Subscribe(o Observer) int {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObsID++
	m.observers[m.nextObsID] = o
	return m.nextObsID
}

// Unsubscribe removes an observer.
func (m *Monitor) Unsubscribe(id int) {
	m.obsMu.Lock()
	delete(m.observers, id)
	m.obsMu.Unlock()
}

// notify delivers a snapshot to observers. Must be called without m.mu held.
func (m *Monitor) notify() {
	m.obsMu.RLock()
	if len(m.observers) == 0 {
		m.obsMu.RUnlock()
		return
	}
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, m.observers[id])
	}
	m.obsMu.RUnlock()

	snapshot := m.Context()
	for _, o := range observers {
		o(snapshot.DeepCopy())
	}
}

// LoadTrack places a track on a deck, resets its transport, pushes the track
// onto the recent-tracks ring and recomputes the energy trend.
func (m *Monitor) LoadTrack(deck DeckID, t track.Track) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}
	if err := t.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	d := m.decks[deck]
	d.Track = t.Clone()
	d.IsPlaying = false
	d.Position = 0
	d.TimeRemaining = t.Duration
	d.Loop = false
	d.Effects = nil

	m.pushRecent(recentTrack{id: t.ID, energy: t.Energy})
	if !m.crowdReported && len(m.recent) == 1 {
		m.crowdEnergy = t.Energy
	}
	m.trend = computeTrend(m.recent)
	m.mu.Unlock()

	m.logger.Debug("track loaded", "deck", deck, "track_id", t.ID, "bpm", t.BPM, "key", t.Key)
	m.notify()
	return nil
}

// pushRecent inserts at the head of the ring, dropping an earlier entry for the
// same track and trimming to capacity. Caller holds m.mu.
func (m *Monitor) pushRecent(r recentTrack) {
	filtered := make([]recentTrack, 0, len(m.recent)+1)
	filtered = append(filtered, r)
	for _, existing := range m.recent {
		if existing.id != r.id {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) > recentTrackCapacity {
		filtered = filtered[:recentTrackCapacity]
	}
	m.recent = filtered
}

// UpdateDeck applies a partial update to a deck.
func (m *Monitor) UpdateDeck(deck DeckID, u DeckUpdate) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}

	m.mu.Lock()
	d := m.decks[deck]
	if u.IsPlaying != nil {
		d.IsPlaying = *u.IsPlaying
	}
	if u.Volume != nil {
		d.Volume = Clamp01(*u.Volume)
	}
	if u.Tempo != nil {
		d.Tempo = *u.Tempo
	}
	if u.Effects != nil {
		d.Effects = dedupe(u.Effects)
	}
	if u.Loop != nil {
		d.Loop = *u.Loop
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// AddEffect marks effect as active on a deck. Adding an active effect is a
// no-op apart from notifying observers.
func (m *Monitor) AddEffect(deck DeckID, effect string) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}

	m.mu.Lock()
	d := m.decks[deck]
	if !slices.Contains(d.Effects, effect) {
		d.Effects = append(slices.Clone(d.Effects), effect)
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// RemoveEffect clears effect from a deck's active effects.
func (m *Monitor) RemoveEffect(deck DeckID, effect string) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}

	m.mu.Lock()
	d := m.decks[deck]
	remaining := make([]string, 0, len(d.Effects))
	for _, e := range d.Effects {
		if e != effect {
			remaining = append(remaining, e)
		}
	}
	d.Effects = remaining
	m.mu.Unlock()

	m.notify()
	return nil
}

// UpdatePosition sets the playhead of a deck and recomputes its time remaining.
func (m *Monitor) UpdatePosition(deck DeckID, positionSec float64) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}

	m.mu.Lock()
	d := m.decks[deck]
	if d.Track == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: deck %s", ErrNoTrackLoaded, deck)
	}
	if positionSec < 0 || positionSec != positionSec {
		positionSec = 0
	}
	if positionSec > d.Track.Duration {
		positionSec = d.Track.Duration
	}
	d.Position = positionSec
	d.TimeRemaining = d.Track.Duration - positionSec
	m.mu.Unlock()

	m.notify()
	return nil
}

// UpdateMixer applies a partial mixer update. Values are clamped to [0, 1].
func (m *Monitor) UpdateMixer(u MixerUpdate) {
	m.mu.Lock()
	if u.Crossfader != nil {
		m.mixer.Crossfader = Clamp01(*u.Crossfader)
	}
	if u.MasterVolume != nil {
		m.mixer.MasterVolume = Clamp01(*u.MasterVolume)
	}
	m.mu.Unlock()

	m.notify()
}

// SetActiveDeck marks which deck is currently the audible "current" deck.
func (m *Monitor) SetActiveDeck(deck DeckID) error {
	if !deck.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeck, deck)
	}
	m.mu.Lock()
	m.activeDeck = deck
	m.mu.Unlock()

	m.notify()
	return nil
}

// RecordAction appends an observed action to the bounded action history.
func (m *Monitor) RecordAction(action string, deck DeckID) {
	m.mu.Lock()
	rec := ActionRecord{Action: action, Deck: deck, At: m.clock().UTC()}
	m.actions = append([]ActionRecord{rec}, m.actions...)
	if len(m.actions) > recentActionCapacity {
		m.actions = m.actions[:recentActionCapacity]
	}
	m.mu.Unlock()

	m.notify()
}

// UpdateCrowdEnergy records the latest crowd energy reading.
func (m *Monitor) UpdateCrowdEnergy(v float64) {
	m.mu.Lock()
	m.crowdEnergy = Clamp01(v)
	m.crowdReported = true
	m.mu.Unlock()

	m.notify()
}

// SetTargetEnergy sets the energy level the set should move towards.
func (m *Monitor) SetTargetEnergy(v float64) {
	m.mu.Lock()
	m.targetEnergy = Clamp01(v)
	m.mu.Unlock()

	m.notify()
}

// Tick recomputes the session duration and energy trend.
func (m *Monitor) Tick() {
	m.mu.Lock()
	m.sessionDuration = m.clock().Sub(m.sessionStart)
	m.trend = computeTrend(m.recent)
	m.mu.Unlock()

	m.notify()
}

// Run ticks once per second until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.RunEvery(ctx, defaultTickInterval)
}

// RunEvery ticks at the given interval until ctx is cancelled.
func (m *Monitor) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Context returns a read-only snapshot of the session.
// Two calls with no intervening mutation return equal snapshots.
func (m *Monitor) Context() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := m.decks[m.activeDeck]
	next := m.decks[m.activeDeck.Other()]

	ctx := Context{
		DeckA:           m.decks[DeckA].DeepCopy(),
		DeckB:           m.decks[DeckB].DeepCopy(),
		Mixer:           m.mixer,
		ActiveDeck:      m.activeDeck,
		TimeRemaining:   active.TimeRemaining,
		CrowdEnergy:     m.crowdEnergy,
		SetEnergy:       neutralSetEnergy,
		TargetEnergy:    m.targetEnergy,
		EnergyTrend:     m.trend,
		SessionDuration: m.sessionDuration.Seconds(),
		RecentTracks:    make([]string, len(m.recent)),
		RecentEnergies:  make([]float64, len(m.recent)),
		RecentActions:   make([]ActionRecord, len(m.actions)),
		CapturedAt:      m.sessionStart.Add(m.sessionDuration).UTC(),
	}
	if active.Track != nil {
		ctx.CurrentTrack = active.Track.Clone()
		ctx.SetEnergy = active.Track.Energy
	}
	if next.Track != nil {
		ctx.NextTrack = next.Track.Clone()
	}
	for i, r := range m.recent {
		ctx.RecentTracks[i] = r.id
		ctx.RecentEnergies[i] = r.energy
	}
	copy(ctx.RecentActions, m.actions)
	return ctx
}

// computeTrend derives the trend from the slope of the last trendWindow loaded
// energies. recent is newest first.
func computeTrend(recent []recentTrack) Trend {
	n := len(recent)
	if n > trendWindow {
		n = trendWindow
	}
	if n < 2 {
		return TrendStable
	}

	// Least-squares slope with x = 0..n-1 in chronological order.
	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		x := float64(i)
		y := recent[n-1-i].energy
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)

	switch {
	case slope > trendThreshold:
		return TrendRising
	case slope < -trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
