package automation

import "math"

// Easing maps ramp progress in [0, 1] to output progress in [0, 1].
type Easing func(t float64) float64

// Linear is constant-rate easing.
func Linear(t float64) float64 {
	return t
}

// EaseInOutCubic starts and ends slowly.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
