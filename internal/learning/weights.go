package learning

import (
	"math"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Timing score shape: best at 32s remaining, zero 64s away from it.
const (
	idealMixRemaining = 32.0
	timingTolerance   = 64.0
	learnedShare      = 0.5
)

// factorScores are the per-factor scores observed at the moment of a mix.
type factorScores map[compat.Factor]float64

// scoreEvent computes every factor score for an event's context.
// Track factors are neutral when either track is missing.
func scoreEvent(e Event) factorScores {
	fs := factorScores{
		compat.FactorBPM:    0.5,
		compat.FactorKey:    0.5,
		compat.FactorEnergy: 0.5,
		compat.FactorGenre:  0.5,
	}
	ctx := e.Context
	if ctx.CurrentTrack != nil && ctx.NextTrack != nil {
		r := compat.Score(*ctx.CurrentTrack, *ctx.NextTrack, compat.DefaultWeights())
		fs[compat.FactorBPM] = r.BPM
		fs[compat.FactorKey] = r.Key
		fs[compat.FactorEnergy] = r.Energy
		fs[compat.FactorGenre] = r.Genre
	}
	fs[compat.FactorTiming] = session.Clamp01(1 - math.Abs(ctx.TimeRemaining-idealMixRemaining)/timingTolerance)

	crowd := ctx.CrowdEnergy
	if e.Outcome != nil && e.Outcome.CrowdResponse != nil {
		crowd = *e.Outcome.CrowdResponse
	}
	fs[compat.FactorCrowdResponse] = session.Clamp01(crowd)
	return fs
}

// EstimateWeights derives decision weights from manual mix events.
//
// With fewer than minSuccess successful manual mixes the static defaults are
// returned. Otherwise each factor's importance is its mean score across
// successful mixes plus how much higher that mean is than across failed
// mixes. The normalised importances are blended half-and-half with the
// defaults so that a short history cannot zero out a factor.
func EstimateWeights(events []Event, minSuccess int) compat.Weights {
	defaults := compat.DefaultWeights()

	var succeeded, failed []factorScores
	for _, e := range events {
		if !isScoredMix(e) {
			continue
		}
		if e.Outcome.Success {
			succeeded = append(succeeded, scoreEvent(e))
		} else {
			failed = append(failed, scoreEvent(e))
		}
	}
	if len(succeeded) < minSuccess {
		return defaults
	}

	successMean := meanScores(succeeded)
	failMean := meanScores(failed)

	var learned compat.Weights
	for _, f := range compat.AllFactors {
		importance := successMean[f]
		if len(failed) > 0 {
			importance += math.Max(0, successMean[f]-failMean[f])
		}
		learned = learned.With(f, importance)
	}
	learned = learned.Normalize()

	var blended compat.Weights
	for _, f := range compat.AllFactors {
		blended = blended.With(f, (1-learnedShare)*defaults.Get(f)+learnedShare*learned.Get(f))
	}
	return blended.Normalize()
}

func isScoredMix(e Event) bool {
	return e.Action == ActionManualMix && e.Outcome != nil
}

// successfulMixes counts the manual mixes EstimateWeights learns from.
func successfulMixes(events []Event) int {
	n := 0
	for _, e := range events {
		if isScoredMix(e) && e.Outcome.Success {
			n++
		}
	}
	return n
}

func meanScores(all []factorScores) factorScores {
	out := make(factorScores, len(compat.AllFactors))
	if len(all) == 0 {
		return out
	}
	for _, fs := range all {
		for f, v := range fs {
			out[f] += v
		}
	}
	for f := range out {
		out[f] /= float64(len(all))
	}
	return out
}
