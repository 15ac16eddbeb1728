// Package learning records operator behaviour and turns it into bias for the
// decision engine.
//
// The System keeps an append-only, capacity-bounded log of Events. Each
// recorded event incrementally updates:
//
//   - a Pattern keyed by (action, context bucket) with frequency and a
//     rolling success rate
//   - the single Preferences record (genres, effects, timing and energy-flow
//     bias, automation trust)
//   - overall training progress
//
// From the log it derives recommended decision weights and pattern-backed
// suggestions. A SQLiteRepository persists snapshots between sessions.
//
// # Thread Safety
//
// All System methods are safe for concurrent use.
package learning
