package learning

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// Defaults for Config.
const (
	DefaultCapacity               = 1000
	DefaultSuggestionMinFrequency = 3
	DefaultMinSuccessfulMixes     = 10
)

// Progress is split between log volume and pattern variety.
const (
	progressEventsTarget  = 500.0
	progressEventsShare   = 0.6
	progressPatternTarget = 50.0
	progressPatternShare  = 0.4
)

// Preference blending.
const (
	maxPreferenceList = 5
	biasSmoothing     = 0.1 // weight of the newest sample in EMA biases
	trustApprove      = 0.01
	trustPenalty      = 0.02
	topActionCount    = 5
)

// Logger defines the logging interface used by the System.
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

// Config tunes the learning system.
type Config struct {
	// Capacity bounds the event log; the oldest events are evicted first.
	Capacity int
	// SuggestionMinFrequency is the pattern frequency a suggestion must exceed.
	SuggestionMinFrequency int
	// MinSuccessfulMixes is how many successful manual mixes are needed
	// before recommended weights move away from the defaults.
	MinSuccessfulMixes int
}

// DefaultConfig returns the default learning configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:               DefaultCapacity,
		SuggestionMinFrequency: DefaultSuggestionMinFrequency,
		MinSuccessfulMixes:     DefaultMinSuccessfulMixes,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.SuggestionMinFrequency <= 0 {
		c.SuggestionMinFrequency = d.SuggestionMinFrequency
	}
	if c.MinSuccessfulMixes <= 0 {
		c.MinSuccessfulMixes = d.MinSuccessfulMixes
	}
	return c
}

// System is the learning store.
type System struct {
	cfg Config

	mu       sync.RWMutex
	events   []Event
	patterns map[string]*Pattern
	prefs    Preferences
	counters Counters

	clock  func() time.Time
	logger Logger
}

// NewSystem creates an empty learning system.
func NewSystem(cfg Config) *System {
	return &System{
		cfg:      cfg.withDefaults(),
		patterns: make(map[string]*Pattern),
		prefs:    DefaultPreferences(),
		clock:    time.Now,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the system.
func (s *System) SetLogger(logger Logger) {
	s.logger = logger
}

// SetClock replaces the time source used to stamp events.
func (s *System) SetClock(clock func() time.Time) {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

// RecordEvent appends an event and updates patterns, preferences and
// counters. A missing ID or timestamp is filled in. The stored event is
// returned.
func (s *System) RecordEvent(e Event) (Event, error) {
	if e.Action == "" {
		return Event{}, ErrEmptyAction
	}
	e = e.DeepCopy()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}

	s.events = append(s.events, e)
	if over := len(s.events) - s.cfg.Capacity; over > 0 {
		// Copy so the evicted prefix can be collected.
		s.events = append([]Event(nil), s.events[over:]...)
	}

	s.counters.TotalEvents++
	switch e.Action {
	case ActionApproveAI:
		s.counters.Approvals++
	case ActionRejectAI:
		s.counters.Rejections++
	case ActionCorrectAI:
		s.counters.Corrections++
	}

	s.updatePattern(e)
	s.updatePreferences(e)

	s.logger.Debug("learning event recorded",
		"event_id", e.ID,
		"action", e.Action,
		"bucket", Bucket(e.Context),
		"stored", len(s.events),
	)
	return e.DeepCopy(), nil
}

// updatePattern folds an event into its pattern. Caller holds s.mu.
func (s *System) updatePattern(e Event) {
	action := e.patternAction()
	bucket := Bucket(e.Context)
	key := patternKey(action, bucket)

	p, ok := s.patterns[key]
	if !ok {
		p = &Pattern{Action: action, Bucket: bucket}
		s.patterns[key] = p
	}
	p.Frequency++
	p.LastSeen = e.Timestamp
	if success, ok := e.success(); ok {
		p.Outcomes++
		v := 0.0
		if success {
			v = 1
		}
		p.SuccessRate += (v - p.SuccessRate) / float64(p.Outcomes)
	}
}

// updatePreferences blends an event into the preference record. Caller holds s.mu.
func (s *System) updatePreferences(e Event) {
	p := &s.prefs

	switch e.Action {
	case ActionApproveAI:
		p.AutomationTrust = session.Clamp01(p.AutomationTrust + trustApprove)
	case ActionRejectAI, ActionCorrectAI:
		p.AutomationTrust = session.Clamp01(p.AutomationTrust - trustPenalty)
	}

	// Rejected suggestions say nothing positive about taste.
	if e.Action == ActionRejectAI {
		return
	}

	if e.Context.CurrentTrack != nil {
		p.Genres = pushRecent(p.Genres, track.NormalizeGenre(e.Context.CurrentTrack.Genre))
	}
	if effect := e.Choice.Params.Effect; effect != "" {
		p.Effects = pushRecent(p.Effects, effect)
	} else if e.Action == ActionApproveAI && e.Prior != nil && e.Prior.Params.Effect != "" {
		p.Effects = pushRecent(p.Effects, e.Prior.Params.Effect)
	}

	if isMix(e) {
		p.TimingBias = ema(p.TimingBias, e.Context.TimeRemaining)
		if e.Context.CurrentTrack != nil && e.Context.NextTrack != nil {
			p.EnergyFlowBias = ema(p.EnergyFlowBias, e.Context.NextTrack.Energy-e.Context.CurrentTrack.Energy)
		}
	}
}

func isMix(e Event) bool {
	if e.Action == ActionManualMix || e.Choice.Action == string(decision.ActionStartMix) {
		return true
	}
	return e.Action == ActionApproveAI && e.Prior != nil && e.Prior.Action == decision.ActionStartMix
}

func ema(prev, sample float64) float64 {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return prev
	}
	return prev*(1-biasSmoothing) + sample*biasSmoothing
}

// pushRecent moves v to the front of list, keeping at most maxPreferenceList entries.
func pushRecent(list []string, v string) []string {
	if v == "" {
		return list
	}
	out := make([]string, 0, maxPreferenceList)
	out = append(out, v)
	for _, existing := range list {
		if existing != v && len(out) < maxPreferenceList {
			out = append(out, existing)
		}
	}
	return out
}

// Suggestion returns a pattern-backed statement for an action in the given
// context, or false when the pattern has not been seen often enough.
func (s *System) Suggestion(action string, ctx session.Context) (string, bool) {
	bucket := Bucket(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[patternKey(action, bucket)]
	if !ok || p.Frequency <= s.cfg.SuggestionMinFrequency {
		return "", false
	}
	if p.Outcomes == 0 {
		return fmt.Sprintf("You usually %s here (%d times)", humanAction(action), p.Frequency), true
	}
	return fmt.Sprintf("You usually %s here: %.0f%% success over %d times",
		humanAction(action), p.SuccessRate*100, p.Frequency), true
}

// Pattern returns the pattern for an action in a context, if any.
func (s *System) Pattern(action string, ctx session.Context) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[patternKey(action, Bucket(ctx))]
	if !ok {
		return Pattern{}, false
	}
	return *p, true
}

func humanAction(action string) string {
	out := []rune(action)
	for i, r := range out {
		if r == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}

// Progress returns training progress in [0, 1].
func (s *System) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress()
}

func (s *System) progress() float64 {
	events := math.Min(float64(len(s.events))/progressEventsTarget, progressEventsShare)
	patterns := math.Min(float64(len(s.patterns))/progressPatternTarget, progressPatternShare)
	return events + patterns
}

// Preferences returns a copy of the current preferences.
func (s *System) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.DeepCopy()
}

// SetStyle records the operator's preferred mixing style.
func (s *System) SetStyle(style decision.Style) {
	s.mu.Lock()
	s.prefs.Style = style
	s.mu.Unlock()
}

// Events returns a copy of the stored log, oldest first.
func (s *System) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	for i, e := range s.events {
		out[i] = e.DeepCopy()
	}
	return out
}

// Stats returns aggregate statistics.
func (s *System) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Counters:     s.counters,
		StoredEvents: len(s.events),
		Patterns:     len(s.patterns),
		Progress:     s.progress(),
		Preferences:  s.prefs.DeepCopy(),
		TopActions:   []ActionCount{},
	}
	if judged := s.counters.Approvals + s.counters.Rejections + s.counters.Corrections; judged > 0 {
		st.ApprovalRatio = float64(s.counters.Approvals) / float64(judged)
	}

	counts := make(map[string]int)
	for _, e := range s.events {
		counts[e.Action]++
	}
	for action, n := range counts {
		st.TopActions = append(st.TopActions, ActionCount{Action: action, Count: n})
	}
	sort.Slice(st.TopActions, func(i, j int) bool {
		if st.TopActions[i].Count != st.TopActions[j].Count {
			return st.TopActions[i].Count > st.TopActions[j].Count
		}
		return st.TopActions[i].Action < st.TopActions[j].Action
	})
	if len(st.TopActions) > topActionCount {
		st.TopActions = st.TopActions[:topActionCount]
	}
	return st
}

// Export returns a snapshot of the full state.
func (s *System) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:     SnapshotVersion,
		ExportedAt:  s.clock().UTC(),
		Counters:    s.counters,
		Events:      make([]Event, len(s.events)),
		Patterns:    make([]Pattern, 0, len(s.patterns)),
		Preferences: s.prefs.DeepCopy(),
	}
	for i, e := range s.events {
		snap.Events[i] = e.DeepCopy()
	}
	for _, p := range s.patterns {
		snap.Patterns = append(snap.Patterns, *p)
	}
	sort.Slice(snap.Patterns, func(i, j int) bool {
		return patternKey(snap.Patterns[i].Action, snap.Patterns[i].Bucket) <
			patternKey(snap.Patterns[j].Action, snap.Patterns[j].Bucket)
	})
	return snap
}

// Import replaces the full state with a snapshot. Events beyond capacity are
// dropped oldest first. As with RecordEvent, events without an ID or
// timestamp are given one, and an ID already seen earlier in the snapshot
// is replaced so every stored event stays uniquely keyed.
func (s *System) Import(snap Snapshot) error {
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	s.mu.RLock()
	now := s.clock().UTC()
	s.mu.RUnlock()

	events := make([]Event, 0, len(snap.Events))
	seen := make(map[string]struct{}, len(snap.Events))
	for _, e := range snap.Events {
		if e.Action == "" {
			continue
		}
		e = e.DeepCopy()
		if _, dup := seen[e.ID]; dup || e.ID == "" {
			e.ID = uuid.NewString()
		}
		seen[e.ID] = struct{}{}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		events = append(events, e)
	}
	if over := len(events) - s.cfg.Capacity; over > 0 {
		events = events[over:]
	}

	patterns := make(map[string]*Pattern, len(snap.Patterns))
	for _, p := range snap.Patterns {
		p.SuccessRate = session.Clamp01(p.SuccessRate)
		patterns[patternKey(p.Action, p.Bucket)] = &p
	}

	prefs := snap.Preferences.DeepCopy()
	if prefs.Genres == nil {
		prefs.Genres = []string{}
	}
	if prefs.Effects == nil {
		prefs.Effects = []string{}
	}
	prefs.AutomationTrust = session.Clamp01(prefs.AutomationTrust)
	if prefs.Style == "" {
		prefs.Style = DefaultPreferences().Style
	}

	counters := snap.Counters
	if counters.TotalEvents < len(events) {
		counters.TotalEvents = len(events)
	}

	s.mu.Lock()
	s.events = events
	s.patterns = patterns
	s.prefs = prefs
	s.counters = counters
	s.mu.Unlock()

	s.logger.Info("learning data imported",
		"events", len(events),
		"patterns", len(patterns),
	)
	return nil
}

// Reset clears all learned state.
func (s *System) Reset() {
	s.mu.Lock()
	s.events = nil
	s.patterns = make(map[string]*Pattern)
	s.prefs = DefaultPreferences()
	s.counters = Counters{}
	s.mu.Unlock()
}

// RecommendedWeights derives decision weights from the event log.
// See EstimateWeights for the estimator.
func (s *System) RecommendedWeights() compat.Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return EstimateWeights(s.events, s.cfg.MinSuccessfulMixes)
}

// CanRecommend reports whether enough successful manual mixes have been
// recorded for RecommendedWeights to differ from the defaults.
func (s *System) CanRecommend() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return successfulMixes(s.events) >= s.cfg.MinSuccessfulMixes
}
