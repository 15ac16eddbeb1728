// Package automation turns accepted decisions into timed control calls.
//
// The Executor drives an injected ControlSurface (the deck/mixer hardware
// or software being automated). Discrete actions are passed straight
// through; continuous changes run as ramps: cancellable sequences of
// delayed steps that each own one control slot.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│               Executor (executor.go)                  │
//	│  ExecuteDecision ──▶ start_mix / crossfade / effect   │
//	│        │                                              │
//	│        ▼                                              │
//	│  ┌──────────────┐      ┌──────────────────────────┐  │
//	│  │ ramp slots   │      │ effect removal timers     │  │
//	│  │ deck A/B,    │      │ (deck, effect) → Task     │  │
//	│  │ crossfader,  │      └──────────────────────────┘  │
//	│  │ master       │                                     │
//	│  └──────────────┘                                     │
//	│        │                                              │
//	│        ▼                                              │
//	│  ControlSurface ── MQTTSurface / MonitoredSurface     │
//	└──────────────────────────────────────────────────────┘
//
// # Ramp Slots
//
// At most one ramp runs per slot. Starting a ramp on a busy slot cancels
// the running ramp and waits for it to stop before the first new step, so
// two ramps never write the same control. EmergencyStop cancels every ramp
// and pending effect removal, then silences and pauses both decks.
//
// # Thread Safety
//
// All Executor methods are safe for concurrent use.
package automation
