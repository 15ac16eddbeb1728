// Package training orchestrates the decision engine, the learning system and
// the automation executor for one live session.
//
// A Manager asks the engine for a decision, remembers it as the last
// decision, and turns operator feedback (approve, reject, correct) into
// learning events. It tracks prediction accuracy and training progress,
// feeds recommended weights back into the engine, and in autonomous mode
// executes confident decisions on its own.
//
// Observers receive a Status after every mutating call. Delivery is
// asynchronous and never blocks the caller; a slow observer loses updates
// rather than stalling the manager.
//
// Snapshots of the full training state can be encoded as JSON or CBOR and
// persisted with a SQLiteStore.
package training
