package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/automation"
	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/config"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/database"
	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// openDatabase opens the SQLite database and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// buildWeights starts from the default decision weights and applies the
// per-factor overrides from config. Factor names are validated; the result
// is normalised by the analyzer.
func buildWeights(overrides map[string]float64) (compat.Weights, error) {
	w := compat.DefaultWeights()

	// Sorted so the first bad name reported is deterministic
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, err := compat.ParseFactor(name)
		if err != nil {
			return compat.Weights{}, fmt.Errorf("engine weight %q: %w", name, err)
		}
		v := overrides[name]
		if v < 0 {
			return compat.Weights{}, fmt.Errorf("engine weight %q must not be negative", name)
		}
		w = w.With(f, v)
	}
	return w, nil
}

// buildEngine creates the decision engine. A non-zero seed makes random
// choices reproducible across runs.
func buildEngine(cfg config.EngineConfig) (*decision.Engine, error) {
	w, err := buildWeights(cfg.Weights)
	if err != nil {
		return nil, err
	}

	var rng decision.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)) //nolint:gosec // mix choices, not security
	}
	return decision.NewEngine(compat.NewAnalyzer(w), rng), nil
}

// engineSettings converts the engine section into decision settings.
func engineSettings(cfg config.EngineConfig) (decision.Settings, error) {
	style, err := decision.ParseStyle(cfg.Style)
	if err != nil {
		return decision.Settings{}, err
	}
	return decision.Settings{
		Style:          style,
		Aggressiveness: cfg.Aggressiveness,
		Creativity:     cfg.Creativity,
	}, nil
}

func learningConfig(cfg config.LearningConfig) learning.Config {
	return learning.Config{
		Capacity:               cfg.Capacity,
		SuggestionMinFrequency: cfg.SuggestionMinFrequency,
		MinSuccessfulMixes:     cfg.MinSuccessfulMixes,
	}
}

func trainingConfig(cfg *config.Config) (training.Config, error) {
	mode, err := training.ParseMode(cfg.Training.Mode)
	if err != nil {
		return training.Config{}, err
	}
	return training.Config{
		Mode:                 mode,
		SuggestionThreshold:  cfg.Training.SuggestionThreshold,
		AutoExecuteThreshold: cfg.Training.AutoExecuteThreshold,
		LearningRate:         cfg.Training.LearningRate,
		RecalculateEvery:     cfg.Training.RecalculateEvery,
		PollInterval:         cfg.GetPollInterval(),
	}, nil
}

func automationConfig(cfg config.AutomationConfig) automation.Config {
	c := automation.DefaultConfig()
	c.CrossfadeSteps = cfg.CrossfadeSteps
	c.EffectHold = time.Duration(cfg.EffectHold) * time.Second
	c.BeatmatchSteps = cfg.BeatmatchSteps
	c.BeatmatchInterval = time.Duration(cfg.BeatmatchInterval) * time.Millisecond
	c.FadeSteps = cfg.FadeSteps
	return c
}

// newManager wires engine, learning system and manager together. The mode
// preset is applied by the manager first; the engine section then sets the
// startup knobs, and a restored checkpoint overrides both.
func newManager(cfg *config.Config, exec training.Executor) (*training.Manager, error) {
	engine, err := buildEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	settings, err := engineSettings(cfg.Engine)
	if err != nil {
		return nil, err
	}
	tcfg, err := trainingConfig(cfg)
	if err != nil {
		return nil, err
	}

	learn := learning.NewSystem(learningConfig(cfg.Learning))
	learn.SetStyle(settings.Style)

	m := training.NewManager(tcfg, engine, learn, exec)
	if err := engine.ApplySettings(settings); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// newCheckpointer persists training state to db using the configured
// snapshot encoding.
func newCheckpointer(db *database.DB, encoding string) (training.Checkpointer, error) {
	enc, err := training.ParseEncoding(encoding)
	if err != nil {
		return training.Checkpointer{}, err
	}
	return training.Checkpointer{
		State:    training.NewSQLiteStore(db.DB, enc),
		Learning: learning.NewSQLiteRepository(db.DB),
	}, nil
}

// syncingExecutor refreshes the executor's cached mixer levels from the
// live session before each decision, so manual moves by the DJ are not
// undone by a ramp starting from stale values.
type syncingExecutor struct {
	exec   *automation.Executor
	source training.ContextSource
}

func (s syncingExecutor) ExecuteDecision(ctx context.Context, d decision.Decision) bool {
	s.exec.Sync(s.source.Context())
	return s.exec.ExecuteDecision(ctx, d)
}

func (s syncingExecutor) MixInProgress() bool {
	return s.exec.MixInProgress()
}

func (s syncingExecutor) EmergencyStop(ctx context.Context) error {
	return s.exec.EmergencyStop(ctx)
}

func (s syncingExecutor) FadeVolume(target automation.Target, level float64, duration time.Duration) (*automation.Task, error) {
	s.exec.Sync(s.source.Context())
	return s.exec.FadeVolume(target, level, duration)
}

func (s syncingExecutor) EnergyTransition(ctx context.Context, deck session.DeckID, target float64) error {
	s.exec.Sync(s.source.Context())
	return s.exec.EnergyTransition(ctx, deck, target)
}

// deckSwitchHandler keeps the monitor's active deck in step with the
// executor once a mix completes.
func deckSwitchHandler(monitor *session.Monitor, log interface{ Warn(string, ...any) }) func(session.DeckID) {
	return func(d session.DeckID) {
		if err := monitor.SetActiveDeck(d); err != nil {
			log.Warn("active deck not updated", "deck", d, "error", err)
		}
	}
}
