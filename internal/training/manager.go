package training

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Defaults for Config.
const (
	DefaultSuggestionThreshold  = 0.7
	DefaultAutoExecuteThreshold = 0.8
	DefaultLearningRate         = 0.05
	DefaultRecalculateEvery     = 10
	DefaultPollInterval         = time.Second
	DefaultObserverBuffer       = 64
)

// Logger defines the logging interface used by the Manager.
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

// Executor carries out decisions. *automation.Executor satisfies it.
type Executor interface {
	ExecuteDecision(ctx context.Context, d decision.Decision) bool
}

// transitioner is implemented by executors whose mixes outlive
// ExecuteDecision. Autonomous polling holds off while one is running.
type transitioner interface {
	MixInProgress() bool
}

// ContextSource supplies live session snapshots. *session.Monitor satisfies it.
type ContextSource interface {
	Context() session.Context
}

// Config tunes the manager.
type Config struct {
	// Mode is the initial operating mode.
	Mode Mode
	// SuggestionThreshold is the confidence at which a decision is surfaced
	// as a suggestion.
	SuggestionThreshold float64
	// AutoExecuteThreshold is the confidence at which autonomous mode acts.
	AutoExecuteThreshold float64
	// LearningRate is how far a correction moves its implied weight.
	LearningRate float64
	// RecalculateEvery is how many recorded events trigger a weight refresh.
	RecalculateEvery int
	// PollInterval is the autonomous decision interval.
	PollInterval time.Duration
	// ObserverBuffer is how many status updates may queue for observers.
	ObserverBuffer int
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		Mode:                 ModePassive,
		SuggestionThreshold:  DefaultSuggestionThreshold,
		AutoExecuteThreshold: DefaultAutoExecuteThreshold,
		LearningRate:         DefaultLearningRate,
		RecalculateEvery:     DefaultRecalculateEvery,
		PollInterval:         DefaultPollInterval,
		ObserverBuffer:       DefaultObserverBuffer,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if _, ok := c.Mode.Preset(); !ok {
		c.Mode = d.Mode
	}
	if c.SuggestionThreshold <= 0 {
		c.SuggestionThreshold = d.SuggestionThreshold
	}
	if c.AutoExecuteThreshold <= 0 {
		c.AutoExecuteThreshold = d.AutoExecuteThreshold
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.RecalculateEvery <= 0 {
		c.RecalculateEvery = d.RecalculateEvery
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ObserverBuffer <= 0 {
		c.ObserverBuffer = d.ObserverBuffer
	}
	return c
}

// Manager owns the training loop of one session.
type Manager struct {
	cfg      Config
	engine   *decision.Engine
	learning *learning.System
	executor Executor

	mu                 sync.RWMutex
	mode               Mode
	active             bool
	totalDecisions     int
	correctPredictions int
	lastDecision       *decision.Decision
	lastContext        session.Context
	suggestion         string
	sinceRecalc        int

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int

	updates   chan Status
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	clock  func() time.Time
	logger Logger
}

// NewManager creates a manager and starts its observer dispatcher.
// Close must be called to stop the dispatcher.
//
// Parameters:
//   - cfg: manager configuration (zero fields take defaults)
//   - engine: decision engine whose knobs and weights the manager drives
//   - learn: learning system receiving every recorded event
//   - exec: executor for approved or autonomous decisions; may be nil
func NewManager(cfg Config, engine *decision.Engine, learn *learning.System, exec Executor) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:       cfg,
		engine:    engine,
		learning:  learn,
		executor:  exec,
		mode:      cfg.Mode,
		observers: make(map[int]Observer),
		updates:   make(chan Status, cfg.ObserverBuffer),
		done:      make(chan struct{}),
		clock:     time.Now,
		logger:    noopLogger{},
	}
	m.applyPreset(cfg.Mode)

	m.wg.Add(1)
	go m.dispatch()
	return m
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetClock replaces the time source used to stamp statuses.
func (m *Manager) SetClock(clock func() time.Time) {
	m.mu.Lock()
	m.clock = clock
	m.mu.Unlock()
}

// Close stops the observer dispatcher. Queued updates are discarded.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

// Engine returns the decision engine.
func (m *Manager) Engine() *decision.Engine {
	return m.engine
}

// Learning returns the learning system.
func (m *Manager) Learning() *learning.System {
	return m.learning
}

// Decide asks the engine for a decision in ctx and remembers it as the last
// decision. Feedback calls judge this decision.
func (m *Manager) Decide(ctx session.Context) decision.Decision {
	d := m.engine.Decide(ctx)
	suggestion := m.suggestionFor(d, ctx)

	m.mu.Lock()
	m.lastDecision = d.Clone()
	m.lastContext = ctx.DeepCopy()
	m.suggestion = suggestion
	m.mu.Unlock()

	m.logger.Debug("decision made",
		"decision_id", d.ID,
		"action", d.Action,
		"confidence", d.Confidence,
	)
	m.notify()
	return d
}

// suggestionFor is non-empty only for confident, actionable decisions.
func (m *Manager) suggestionFor(d decision.Decision, ctx session.Context) string {
	if d.Action == decision.ActionWait || d.Confidence < m.cfg.SuggestionThreshold {
		return ""
	}
	parts := []string{fmt.Sprintf("Suggest %s (%.0f%% confidence): %s",
		strings.ReplaceAll(string(d.Action), "_", " "), d.Confidence*100, d.Rationale)}
	if hint, ok := m.learning.Suggestion(string(d.Action), ctx); ok {
		parts = append(parts, hint)
	}
	return strings.Join(parts, ". ")
}

// LastDecision returns the last decision, if any.
func (m *Manager) LastDecision() (decision.Decision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastDecision == nil {
		return decision.Decision{}, false
	}
	return *m.lastDecision.Clone(), true
}

// RecordUserAction records something the operator did in ctx, with the last
// decision attached as the AI's prior suggestion. Accuracy only moves for
// feedback actions.
func (m *Manager) RecordUserAction(action string, ctx session.Context, choice learning.Choice, outcome *learning.Outcome) (learning.Event, error) {
	ev, err := m.record(action, ctx, choice, outcome)
	if err != nil {
		return learning.Event{}, err
	}
	m.notify()
	return ev, nil
}

func (m *Manager) record(action string, ctx session.Context, choice learning.Choice, outcome *learning.Outcome) (learning.Event, error) {
	m.mu.RLock()
	var prior *decision.Decision
	if m.lastDecision != nil {
		prior = m.lastDecision.Clone()
	}
	m.mu.RUnlock()

	ev, err := m.learning.RecordEvent(learning.Event{
		Action:  action,
		Context: ctx,
		Prior:   prior,
		Choice:  choice,
		Outcome: outcome,
	})
	if err != nil {
		return learning.Event{}, fmt.Errorf("recording %s: %w", action, err)
	}

	recalc := false
	m.mu.Lock()
	if learning.IsFeedback(action) {
		m.totalDecisions++
		if action == learning.ActionApproveAI {
			m.correctPredictions++
		}
	}
	m.sinceRecalc++
	if m.sinceRecalc >= m.cfg.RecalculateEvery {
		m.sinceRecalc = 0
		recalc = true
	}
	m.mu.Unlock()

	if recalc {
		m.refreshWeights()
	}
	return ev, nil
}

// refreshWeights applies learned weights once the learning system has
// enough data; until then the engine keeps its current weights, including
// any corrections.
func (m *Manager) refreshWeights() {
	if !m.learning.CanRecommend() {
		m.logger.Debug("weight refresh skipped: not enough successful mixes")
		return
	}
	w := m.engine.SetWeights(m.learning.RecommendedWeights())
	m.logger.Info("decision weights refreshed", "weights", w.Map())
}

// ApplyRecommendedWeights replaces the engine weights with the learning
// system's recommendation and returns what was applied. Without enough
// data this resets the weights to the defaults.
func (m *Manager) ApplyRecommendedWeights() compat.Weights {
	w := m.engine.SetWeights(m.learning.RecommendedWeights())

	m.mu.Lock()
	m.sinceRecalc = 0
	m.mu.Unlock()

	m.logger.Info("recommended weights applied", "weights", w.Map())
	m.notify()
	return w
}

// ApproveDecision records that the operator agreed with the last decision.
// Returns false when there is no decision to judge.
func (m *Manager) ApproveDecision() bool {
	_, ok := m.feedback(learning.ActionApproveAI, func(last decision.Decision) learning.Choice {
		return learning.Choice{Action: string(last.Action), Params: last.Params}
	})
	if ok {
		m.notify()
	}
	return ok
}

// RejectDecision records that the operator refused the last decision.
// Returns false when there is no decision to judge.
func (m *Manager) RejectDecision() bool {
	_, ok := m.feedback(learning.ActionRejectAI, func(decision.Decision) learning.Choice {
		return learning.Choice{}
	})
	if ok {
		m.notify()
	}
	return ok
}

// CorrectDecision records the operator's replacement for the last decision
// and nudges the weight of the factor the correction implies by the
// learning rate. Returns false when there is no decision to judge.
func (m *Manager) CorrectDecision(c Correction) bool {
	last, ok := m.feedback(learning.ActionCorrectAI, func(last decision.Decision) learning.Choice {
		action := c.Action
		if action == "" {
			action = last.Action
		}
		return learning.Choice{Action: string(action), Params: c.Params, Correction: c.Reason}
	})
	if !ok {
		return false
	}

	action := c.Action
	if action == "" {
		action = last.Action
	}
	if factor, known := ImpliedFactor(action); known {
		w := m.engine.SetWeights(m.engine.Weights().Nudge(factor, m.cfg.LearningRate))
		m.logger.Info("weights nudged by correction",
			"factor", factor,
			"weight", w.Get(factor),
		)
	} else {
		m.logger.Warn("correction implies no factor", "action", action)
	}

	m.notify()
	return true
}

// feedback records a feedback event against the last decision.
func (m *Manager) feedback(action string, choice func(last decision.Decision) learning.Choice) (decision.Decision, bool) {
	m.mu.RLock()
	var last decision.Decision
	has := m.lastDecision != nil
	if has {
		last = *m.lastDecision.Clone()
	}
	ctx := m.lastContext
	m.mu.RUnlock()

	if !has {
		m.logger.Debug("feedback ignored: no decision", "action", action)
		return decision.Decision{}, false
	}
	if _, err := m.record(action, ctx, choice(last), nil); err != nil {
		m.logger.Warn("recording feedback failed", "action", action, "error", err)
		return decision.Decision{}, false
	}
	return last, true
}

// ExecuteLastDecision hands the last decision to the executor.
// Returns false when there is no decision, no executor, or execution failed.
func (m *Manager) ExecuteLastDecision(ctx context.Context) bool {
	last, ok := m.LastDecision()
	if !ok || m.executor == nil {
		return false
	}
	return m.executor.ExecuteDecision(ctx, last)
}

// SetMode switches the operating mode and applies its engine preset.
func (m *Manager) SetMode(mode Mode) error {
	if _, ok := mode.Preset(); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	m.applyPreset(mode)

	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()

	m.logger.Info("training mode changed", "mode", mode)
	m.notify()
	return nil
}

func (m *Manager) applyPreset(mode Mode) {
	p, _ := mode.Preset()
	m.engine.SetAggressiveness(p.Aggressiveness)
	m.engine.SetCreativity(p.Creativity)
}

// SetActive turns the manager on or off. Autonomous execution only happens
// while active.
func (m *Manager) SetActive(active bool) {
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()

	m.logger.Info("training active changed", "active", active)
	m.notify()
}

// SetStyle changes the engine's mixing style and records it as the
// operator's preference.
func (m *Manager) SetStyle(style decision.Style) error {
	if err := m.engine.SetStyle(style); err != nil {
		return err
	}
	m.learning.SetStyle(style)
	m.notify()
	return nil
}

// SetWeights replaces the engine weights. The applied, normalised weights
// are returned.
func (m *Manager) SetWeights(w compat.Weights) compat.Weights {
	applied := m.engine.SetWeights(w)
	m.notify()
	return applied
}

// Status returns the current observable state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	st := Status{
		Mode:               m.mode,
		Active:             m.active,
		TotalDecisions:     m.totalDecisions,
		CorrectPredictions: m.correctPredictions,
		Suggestion:         m.suggestion,
		UpdatedAt:          m.clock().UTC(),
	}
	if m.lastDecision != nil {
		st.LastDecision = m.lastDecision.Clone()
	}
	m.mu.RUnlock()

	if st.TotalDecisions > 0 {
		st.Accuracy = float64(st.CorrectPredictions) / float64(st.TotalDecisions)
	}
	st.Progress = m.learning.Progress()
	st.Weights = m.engine.Weights()
	st.Settings = m.engine.Settings()
	return st
}

// Subscribe registers an observer and returns its id.
func (m *Manager) Subscribe(o Observer) int {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObsID++
	m.observers[m.nextObsID] = o
	return m.nextObsID
}

// Unsubscribe removes an observer. Unknown ids are ignored.
func (m *Manager) Unsubscribe(id int) {
	m.obsMu.Lock()
	delete(m.observers, id)
	m.obsMu.Unlock()
}

// notify queues the current status for observers without blocking.
func (m *Manager) notify() {
	m.obsMu.RLock()
	n := len(m.observers)
	m.obsMu.RUnlock()
	if n == 0 {
		return
	}

	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.updates <- m.Status():
	default:
		m.logger.Warn("status update dropped: observers lagging")
	}
}

func (m *Manager) dispatch() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case st := <-m.updates:
			m.deliver(st)
		}
	}
}

func (m *Manager) deliver(st Status) {
	m.obsMu.RLock()
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

	for _, o := range observers {
		cpy := st
		if st.LastDecision != nil {
			cpy.LastDecision = st.LastDecision.Clone()
		}
		o(cpy)
	}
}

// Run polls source once per PollInterval until ctx is cancelled. While the
// manager is active in autonomous mode each poll decides, and a decision at
// or above the auto-execute threshold is executed and recorded as
// auto_execute.
func (m *Manager) Run(ctx context.Context, source ContextSource) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx, source)
		}
	}
}

// Poll runs one autonomous step and reports whether a decision was executed.
// Nothing is decided while the executor reports a mix in progress.
func (m *Manager) Poll(ctx context.Context, source ContextSource) bool {
	m.mu.RLock()
	enabled := m.active && m.mode == ModeAutonomous
	m.mu.RUnlock()
	if !enabled || m.executor == nil {
		return false
	}
	if t, ok := m.executor.(transitioner); ok && t.MixInProgress() {
		return false
	}

	snapshot := source.Context()
	d := m.Decide(snapshot)
	if d.Action == decision.ActionWait || d.Confidence < m.cfg.AutoExecuteThreshold {
		return false
	}

	if !m.executor.ExecuteDecision(ctx, d) {
		m.logger.Warn("autonomous execution failed", "decision_id", d.ID, "action", d.Action)
		return false
	}

	choice := learning.Choice{Action: string(d.Action), Params: d.Params}
	if _, err := m.RecordUserAction(learning.ActionAutoExecute, snapshot, choice, nil); err != nil {
		m.logger.Warn("recording autonomous execution failed", "error", err)
	}
	m.logger.Info("decision executed autonomously",
		"decision_id", d.ID,
		"action", d.Action,
		"confidence", d.Confidence,
	)
	return true
}
