package compat

import (
	"fmt"
	"math"
)

// Factor names one of the six decision weights.
type Factor string

const (
	FactorBPM           Factor = "bpm"
	FactorKey           Factor = "key"
	FactorEnergy        Factor = "energy"
	FactorGenre         Factor = "genre"
	FactorTiming        Factor = "timing"
	FactorCrowdResponse Factor = "crowd_response"
)

// AllFactors lists every factor in canonical order.
var AllFactors = []Factor{FactorBPM, FactorKey, FactorEnergy, FactorGenre, FactorTiming, FactorCrowdResponse}

// ParseFactor validates a factor name.
func ParseFactor(s string) (Factor, error) {
	for _, f := range AllFactors {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFactor, s)
}

// Weights are the six non-negative decision weights. After Normalize they
// sum to 1.
type Weights struct {
	BPM           float64 `json:"bpm" yaml:"bpm"`
	Key           float64 `json:"key" yaml:"key"`
	Energy        float64 `json:"energy" yaml:"energy"`
	Genre         float64 `json:"genre" yaml:"genre"`
	Timing        float64 `json:"timing" yaml:"timing"`
	CrowdResponse float64 `json:"crowd_response" yaml:"crowd_response"`
}

// DefaultWeights returns the static weights used until enough learning data exists.
func DefaultWeights() Weights {
	return Weights{
		BPM:           0.25,
		Key:           0.25,
		Energy:        0.20,
		Genre:         0.10,
		Timing:        0.10,
		CrowdResponse: 0.10,
	}
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	return w.BPM + w.Key + w.Energy + w.Genre + w.Timing + w.CrowdResponse
}

// TrackSum returns the total of the four track-pair weights.
func (w Weights) TrackSum() float64 {
	return w.BPM + w.Key + w.Energy + w.Genre
}

// Get returns the weight for a factor. Unknown factors return 0.
func (w Weights) Get(f Factor) float64 {
	switch f {
	case FactorBPM:
		return w.BPM
	case FactorKey:
		return w.Key
	case FactorEnergy:
		return w.Energy
	case FactorGenre:
		return w.Genre
	case FactorTiming:
		return w.Timing
	case FactorCrowdResponse:
		return w.CrowdResponse
	default:
		return 0
	}
}

// With returns a copy with one factor replaced. The result is not normalised.
func (w Weights) With(f Factor, v float64) Weights {
	switch f {
	case FactorBPM:
		w.BPM = v
	case FactorKey:
		w.Key = v
	case FactorEnergy:
		w.Energy = v
	case FactorGenre:
		w.Genre = v
	case FactorTiming:
		w.Timing = v
	case FactorCrowdResponse:
		w.CrowdResponse = v
	}
	return w
}

// Nudge adds delta to one factor and renormalises.
func (w Weights) Nudge(f Factor, delta float64) Weights {
	return w.With(f, w.Get(f)+delta).Normalize()
}

const normalizedTolerance = 1e-12

// Normalize clamps negative or non-finite weights to zero and scales the
// result to sum to 1. An all-zero input yields DefaultWeights. Weights that
// already sum to 1 are returned unchanged, so Normalize is idempotent.
func (w Weights) Normalize() Weights {
	for _, f := range AllFactors {
		v := w.Get(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			w = w.With(f, 0)
		}
	}

	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	if math.Abs(sum-1) < normalizedTolerance {
		return w
	}
	for _, f := range AllFactors {
		w = w.With(f, w.Get(f)/sum)
	}
	return w
}

// Map returns the weights keyed by factor name.
func (w Weights) Map() map[string]float64 {
	m := make(map[string]float64, len(AllFactors))
	for _, f := range AllFactors {
		m[string(f)] = w.Get(f)
	}
	return m
}
