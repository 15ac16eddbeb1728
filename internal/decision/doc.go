// Package decision classifies the live session and emits one mixing Decision.
//
// The Engine is stateless per call: its only state is the tunable style
// knobs (mixing style, aggressiveness, creativity) and the decision weights
// held by its compatibility analyzer. Given a session.Context it evaluates,
// in priority order:
//
//  1. needs a new track (under a minute left and a track cued on the idle deck)
//  2. needs an energy boost (crowd energy more than 0.2 below set energy)
//  3. wants an effect (random, scaled by creativity)
//  4. needs an EQ adjustment (crowd and set energy differ by more than 0.15)
//
// and falls back to wait. Randomness goes through an injected Rand so tests
// are deterministic.
package decision
