// Package compat scores how well two tracks mix together.
//
// The Analyzer combines four per-pair factors into a single overall score:
//
//   - BPM: relative tempo difference, bucketed at 2/5/8/12 percent
//   - Key: distance on the harmonic (Camelot) wheel
//   - Energy: signed energy change from the outgoing to the incoming track
//   - Genre: identity or membership in a static compatibility table
//
// The overall score is a weighted mean using the track factors of the
// current DecisionWeights. Timing and crowd-response weights are carried in
// the same Weights value so that the Decision Engine and the Learning
// System share one set of knobs.
//
// Scoring is pure and deterministic. The Analyzer is safe for concurrent use.
package compat
