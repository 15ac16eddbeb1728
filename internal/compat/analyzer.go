package compat

import (
	"math"
	"sync"

	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// Score constants for each factor bucket.
const (
	keyIdentical       = 1.0
	keyRelative        = 0.95
	keyAdjacentSame    = 0.85
	keyAdjacentOther   = 0.7
	keyDistant         = 0.4
	keyUnknown         = 0.5
	genreIdentical     = 1.0
	genreCompatible    = 0.8
	genreUnknown       = 0.5
	genreIncompatible  = 0.4
	bpmUnknown         = 0.5
	energyUnknown      = 0.5
	suggestOverallMix  = 0.7
	suggestEnergyMix   = 0.2
	suggestTimeMix     = 0.1
	curveStartEnergy   = 0.4
	curvePeakEnergy    = 0.9
	curvePeakMinutes   = 120.0
	crowdCurrentWeight = 0.7
	crowdRecentWeight  = 0.3
	crowdTrendBonus    = 0.05
	crowdTimeBonus     = 0.1
)

// bpmBuckets maps an upper bound on percent difference to a score.
var bpmBuckets = []struct {
	maxPercent float64
	score      float64
}{
	{2, 1.0},
	{5, 0.8},
	{8, 0.6},
	{12, 0.4},
}

const bpmFloor = 0.2

// Report is the per-factor breakdown of a compatibility check.
type Report struct {
	BPM            float64 `json:"bpm"`
	Key            float64 `json:"key"`
	Energy         float64 `json:"energy"`
	Genre          float64 `json:"genre"`
	Overall        float64 `json:"overall"`
	BPMDiffPercent float64 `json:"bpm_diff_percent"`
	EnergyDelta    float64 `json:"energy_delta"`
}

// Analyzer scores track pairs using the current decision weights.
//
// Thread Safety: all methods are safe for concurrent use.
type Analyzer struct {
	mu      sync.RWMutex
	weights Weights
}

// NewAnalyzer creates an analyzer with the given weights, normalised.
func NewAnalyzer(w Weights) *Analyzer {
	return &Analyzer{weights: w.Normalize()}
}

// Weights returns the current weights.
func (a *Analyzer) Weights() Weights {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.weights
}

// SetWeights atomically replaces the weights after normalising them.
func (a *Analyzer) SetWeights(w Weights) Weights {
	w = w.Normalize()
	a.mu.Lock()
	a.weights = w
	a.mu.Unlock()
	return w
}

// Compatibility scores mixing from track a (outgoing) into track b (incoming).
func (a *Analyzer) Compatibility(from, to track.Track) Report {
	return Score(from, to, a.Weights())
}

// Score is the pure scoring function behind Analyzer.Compatibility.
func Score(from, to track.Track, w Weights) Report {
	r := Report{
		Key:         KeyScore(from.ParsedKey(), to.ParsedKey()),
		Genre:       GenreScore(from.Genre, to.Genre),
		EnergyDelta: to.Energy - from.Energy,
	}
	r.BPM, r.BPMDiffPercent = bpmScore(from.BPM, to.BPM)
	r.Energy = EnergyScore(r.EnergyDelta)

	sum := w.TrackSum()
	if sum <= 0 {
		r.Overall = (r.BPM + r.Key + r.Energy + r.Genre) / 4
	} else {
		r.Overall = (w.BPM*r.BPM + w.Key*r.Key + w.Energy*r.Energy + w.Genre*r.Genre) / sum
	}
	r.Overall = session.Clamp01(r.Overall)
	return r
}

// BPMScore scores the tempo difference between two tracks.
func BPMScore(a, b float64) float64 {
	s, _ := bpmScore(a, b)
	return s
}

func bpmScore(a, b float64) (float64, float64) {
	if a <= 0 || b <= 0 || math.IsNaN(a) || math.IsNaN(b) {
		return bpmUnknown, 0
	}
	diff := math.Abs(a-b) / a * 100
	for _, bucket := range bpmBuckets {
		if diff <= bucket.maxPercent {
			return bucket.score, diff
		}
	}
	return bpmFloor, diff
}

// KeyScore scores two positions on the harmonic wheel. It is symmetric.
func KeyScore(a, b track.Key) float64 {
	if !a.Known() || !b.Known() {
		return keyUnknown
	}
	sameMode := a.Mode == b.Mode
	switch d := a.Distance(b); {
	case d == 0 && sameMode:
		return keyIdentical
	case d == 0:
		return keyRelative
	case d == 1 && sameMode:
		return keyAdjacentSame
	case d == 1:
		return keyAdjacentOther
	default:
		return keyDistant
	}
}

// EnergyScore scores a signed energy change (incoming minus outgoing).
// Small rises are preferred over drops.
func EnergyScore(delta float64) float64 {
	switch {
	case math.IsNaN(delta):
		return energyUnknown
	case math.Abs(delta) < 0.05:
		return 1.0
	case delta >= 0 && delta <= 0.15:
		return 0.95
	case delta > 0.15 && delta <= 0.3:
		return 0.8
	case delta > 0.3:
		return 0.6
	case delta >= -0.15:
		return 0.85
	default:
		return 0.5
	}
}

// GenreScore scores two genre labels.
func GenreScore(a, b string) float64 {
	na, nb := track.NormalizeGenre(a), track.NormalizeGenre(b)
	switch {
	case na == "" || nb == "":
		return genreUnknown
	case na == nb:
		return genreIdentical
	case track.GenresCompatible(na, nb):
		return genreCompatible
	default:
		return genreIncompatible
	}
}

// Suggestion is the result of SuggestNextTrack.
type Suggestion struct {
	Track  track.Track `json:"track"`
	Score  float64     `json:"score"`
	Report Report      `json:"report"`
}

// SuggestNextTrack picks the best candidate to follow the current track.
//
// Candidates that were played recently or are loaded on either deck are
// excluded. The remainder is ranked by
//
//	0.7*overall + 0.2*(1-|energy-target|) + 0.1*timeBias
//
// where timeBias rewards candidates that sit on an energy curve rising over
// the first two hours of the session. Ties keep candidate order. The boolean
// is false when no candidate survives exclusion.
func (a *Analyzer) SuggestNextTrack(ctx session.Context, candidates []track.Track) (Suggestion, bool) {
	w := a.Weights()
	excluded := make(map[string]struct{}, len(ctx.RecentTracks)+2)
	for _, id := range ctx.RecentTracks {
		excluded[id] = struct{}{}
	}
	for _, d := range []session.DeckState{ctx.DeckA, ctx.DeckB} {
		if d.Track != nil {
			excluded[d.Track.ID] = struct{}{}
		}
	}

	curve := energyCurve(ctx.SessionMinutes())

	var best Suggestion
	found := false
	for _, c := range candidates {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		if c.Validate() != nil {
			continue
		}

		var report Report
		if ctx.CurrentTrack != nil {
			report = Score(*ctx.CurrentTrack, c, w)
		} else {
			report = Report{Overall: 0.5}
		}
		closeness := 1 - math.Abs(c.Energy-ctx.TargetEnergy)
		timeBias := 1 - math.Abs(c.Energy-curve)
		score := suggestOverallMix*report.Overall + suggestEnergyMix*closeness + suggestTimeMix*timeBias

		if !found || score > best.Score {
			best = Suggestion{Track: c, Score: session.Clamp01(score), Report: report}
			found = true
		}
	}
	return best, found
}

// energyCurve is the preferred set energy at a point in the session.
func energyCurve(minutes float64) float64 {
	progress := math.Min(math.Max(minutes, 0)/curvePeakMinutes, 1)
	return curveStartEnergy + (curvePeakEnergy-curveStartEnergy)*progress
}

// EstimateCrowdEnergy blends current-track energy, recent history, the energy
// trend and a small bonus for time in session.
func (a *Analyzer) EstimateCrowdEnergy(ctx session.Context) float64 {
	current := ctx.SetEnergy
	if ctx.CurrentTrack != nil {
		current = ctx.CurrentTrack.Energy
	}

	estimate := current
	if len(ctx.RecentEnergies) > 0 {
		var sum float64
		for _, e := range ctx.RecentEnergies {
			sum += e
		}
		estimate = crowdCurrentWeight*current + crowdRecentWeight*(sum/float64(len(ctx.RecentEnergies)))
	}

	switch ctx.EnergyTrend {
	case session.TrendRising:
		estimate += crowdTrendBonus
	case session.TrendFalling:
		estimate -= crowdTrendBonus
	}
	estimate += crowdTimeBonus * math.Min(ctx.SessionMinutes()/60, 1)

	return session.Clamp01(estimate)
}
