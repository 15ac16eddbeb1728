// Package session provides the Context Monitor: the single authoritative view of
// a live two-deck mixing session.
//
// The Monitor owns both deck states, the mixer state, the recent-track ring, the
// crowd/target energy levels and the derived session metrics (duration and energy
// trend). Every mutator is synchronous and last-write-wins. Readers only ever
// receive Context values, which are deep copies that share no memory with the
// Monitor.
//
// # Thread Safety
//
// All Monitor methods are safe for concurrent use. Observers are invoked after
// the lock is released, in registration order.
//
// # Usage
//
//	mon := session.NewMonitor()
//	mon.SetLogger(log)
//	go mon.Run(ctx) // 1 Hz tick
//
//	_ = mon.LoadTrack(session.DeckA, t)
//	snapshot := mon.Context()
package session
