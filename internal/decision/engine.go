package decision

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Classification thresholds.
const (
	newTrackWindow      = 60.0 // seconds remaining before a mix is considered
	energyBoostDeficit  = 0.2
	eqAdjustThreshold   = 0.15
	effectProbability   = 0.15 // scaled by creativity
	maxBoostIntensity   = 0.8
	smoothMixBase       = 32.0
	defaultMixBase      = 16.0
	mixSpread           = 16.0
	crowdLagAdjustment  = 8.0
	minMixPoint         = 16.0
	waitConfidence      = 0.8
	noTrackConfidence   = 1.0
	boostConfidence     = 0.7
	eqConfidence        = 0.75
	effectBaseConf      = 0.6
	effectCreativeConf  = 0.3
	effectBaseIntensity = 0.3
	boostEffect         = "filter"
	maxBeatmatchPitch   = 8.0 // percent; wider gaps are left to the DJ
)

// Effects the engine may pick at random.
var Effects = []string{"echo", "reverb", "filter", "flanger", "delay"}

// Rand is the random source used for probabilistic choices.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Logger defines the logging interface used by the Engine.
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

// Settings are the engine's tunable style knobs.
type Settings struct {
	Style          Style   `json:"style" cbor:"style"`
	Aggressiveness float64 `json:"aggressiveness" cbor:"aggressiveness"`
	Creativity     float64 `json:"creativity" cbor:"creativity"`
}

// DefaultSettings returns the settings for a fresh engine.
func DefaultSettings() Settings {
	return Settings{Style: StyleSmooth, Aggressiveness: 0.5, Creativity: 0.5}
}

// Engine turns a session snapshot into a Decision.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	analyzer *compat.Analyzer

	mu       sync.RWMutex
	settings Settings

	rngMu sync.Mutex
	rng   Rand

	logger Logger
}

// NewEngine creates a decision engine.
//
// Parameters:
//   - analyzer: compatibility analyzer that also holds the decision weights
//   - rng: random source for effect choices (nil uses the global source)
func NewEngine(analyzer *compat.Analyzer, rng Rand) *Engine {
	if analyzer == nil {
		analyzer = compat.NewAnalyzer(compat.DefaultWeights())
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{
		analyzer: analyzer,
		settings: DefaultSettings(),
		rng:      rng,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Analyzer returns the compatibility analyzer backing the engine.
func (e *Engine) Analyzer() *compat.Analyzer {
	return e.analyzer
}

// Settings returns the current style knobs.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// ApplySettings replaces all knobs at once. Numeric values are clamped.
func (e *Engine) ApplySettings(s Settings) error {
	if _, err := ParseStyle(string(s.Style)); err != nil {
		return err
	}
	s.Aggressiveness = session.Clamp01(s.Aggressiveness)
	s.Creativity = session.Clamp01(s.Creativity)

	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()
	return nil
}

// SetStyle sets the mixing style.
func (e *Engine) SetStyle(style Style) error {
	if _, err := ParseStyle(string(style)); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings.Style = style
	e.mu.Unlock()
	return nil
}

// SetAggressiveness sets how eagerly the engine mixes, clamped to [0, 1].
func (e *Engine) SetAggressiveness(v float64) {
	e.mu.Lock()
	e.settings.Aggressiveness = session.Clamp01(v)
	e.mu.Unlock()
}

// SetCreativity sets how often effects are suggested, clamped to [0, 1].
func (e *Engine) SetCreativity(v float64) {
	e.mu.Lock()
	e.settings.Creativity = session.Clamp01(v)
	e.mu.Unlock()
}

// Weights returns the current decision weights.
func (e *Engine) Weights() compat.Weights {
	return e.analyzer.Weights()
}

// SetWeights replaces the decision weights after renormalising them.
func (e *Engine) SetWeights(w compat.Weights) compat.Weights {
	return e.analyzer.SetWeights(w)
}

// Decide classifies the snapshot and returns exactly one Decision.
// It never fails: missing inputs degrade to a wait decision.
func (e *Engine) Decide(ctx session.Context) Decision {
	settings := e.Settings()

	if ctx.CurrentTrack == nil {
		return NewDecision(ActionWait, noTrackConfidence, "No track playing", Params{})
	}

	gap := ctx.CrowdEnergy - ctx.SetEnergy

	switch {
	case ctx.TimeRemaining < newTrackWindow && ctx.NextTrack != nil:
		return e.startMix(ctx, settings)
	case gap < -energyBoostDeficit:
		return energyBoost(ctx, -gap)
	case e.wantsEffect(settings.Creativity):
		return e.effect(ctx, settings)
	case math.Abs(gap) > eqAdjustThreshold:
		return NewDecision(ActionAdjustEQ, eqConfidence,
			fmt.Sprintf("Crowd energy %.2f differs from set energy %.2f", ctx.CrowdEnergy, ctx.SetEnergy),
			Params{Deck: ctx.ActiveDeck, Value: gap})
	default:
		return waitDecision("Set is steady")
	}
}

func waitDecision(rationale string) Decision {
	return NewDecision(ActionWait, waitConfidence, rationale, Params{})
}

// IdealMixPoint returns the number of seconds before the end of the current
// track at which a mix should start.
func IdealMixPoint(style Style, overall, crowdEnergy, setEnergy float64) float64 {
	base := defaultMixBase
	if style == StyleSmooth {
		base = smoothMixBase
	}
	point := base + (1-overall)*mixSpread
	if crowdEnergy < setEnergy {
		point -= crowdLagAdjustment
	}
	return math.Max(point, minMixPoint)
}

func (e *Engine) startMix(ctx session.Context, settings Settings) Decision {
	report := e.analyzer.Compatibility(*ctx.CurrentTrack, *ctx.NextTrack)
	point := IdealMixPoint(settings.Style, report.Overall, ctx.CrowdEnergy, ctx.SetEnergy)

	if ctx.TimeRemaining > point {
		return waitDecision(fmt.Sprintf("Waiting for mix point at %.0fs remaining", point))
	}

	e.logger.Debug("mix point reached",
		"current", ctx.CurrentTrack.ID,
		"next", ctx.NextTrack.ID,
		"overall", report.Overall,
		"mix_point", point,
	)
	return NewDecision(ActionStartMix, report.Overall,
		fmt.Sprintf("Mix into %q: compatibility %.0f%% (bpm %.2f, key %.2f, energy %.2f, genre %.2f)",
			ctx.NextTrack.Title, report.Overall*100, report.BPM, report.Key, report.Energy, report.Genre),
		Params{
			Deck:      ctx.ActiveDeck.Other(),
			Timing:    point,
			Intensity: settings.Aggressiveness,
			Tempo:     BeatmatchPitch(ctx.CurrentTrack.BPM, ctx.NextTrack.BPM),
		})
}

// BeatmatchPitch returns the pitch change, in percent, that brings a track
// at incomingBPM to currentBPM. It returns 0 when either tempo is unknown or
// the change would exceed the pitch fader range.
func BeatmatchPitch(currentBPM, incomingBPM float64) float64 {
	if currentBPM <= 0 || incomingBPM <= 0 {
		return 0
	}
	pitch := (currentBPM/incomingBPM - 1) * 100
	if math.Abs(pitch) > maxBeatmatchPitch {
		return 0
	}
	return pitch
}

func energyBoost(ctx session.Context, deficit float64) Decision {
	if deficit > energyBoostDeficit {
		return NewDecision(ActionApplyEffect, boostConfidence,
			fmt.Sprintf("Crowd energy is %.2f below the set", deficit),
			Params{Deck: ctx.ActiveDeck, Effect: boostEffect, Intensity: math.Min(deficit, maxBoostIntensity)})
	}
	return NewDecision(ActionAdjustEQ, boostConfidence,
		fmt.Sprintf("Crowd energy is %.2f below the set", deficit),
		Params{Deck: ctx.ActiveDeck, Value: deficit})
}

func (e *Engine) wantsEffect(creativity float64) bool {
	if creativity <= 0 {
		return false
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64() < creativity*effectProbability
}

func (e *Engine) effect(ctx session.Context, settings Settings) Decision {
	e.rngMu.Lock()
	name := Effects[e.rng.IntN(len(Effects))]
	e.rngMu.Unlock()

	return NewDecision(ActionApplyEffect, effectBaseConf+settings.Creativity*effectCreativeConf,
		fmt.Sprintf("Add %s for texture", name),
		Params{
			Deck:      ctx.ActiveDeck,
			Effect:    name,
			Intensity: effectBaseIntensity + 0.4*settings.Creativity,
		})
}
