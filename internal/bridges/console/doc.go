// Package console bridges a DJ controller's state feed into MixLogic.
//
// The controller (or the software driving it) reports what the DJ does on
// the hardware over MQTT. The bridge subscribes to those topics and applies
// each message to the session monitor, so the engine sees manual moves as
// well as its own automation.
//
// # Topics
//
//	mixlogic/console/{A|B}/state   deck transport, volume, tempo, effects, position
//	mixlogic/console/{A|B}/load    a track placed on a deck (library id or inline)
//	mixlogic/console/mixer/state   crossfader and master volume
//	mixlogic/console/crowd/state   crowd energy and target energy
//	mixlogic/console/action        a manual DJ action, recorded for learning
//
// Payloads are JSON. Commands from Core to the controller travel the other
// way on mixlogic/command/{target} and are not handled here.
//
// # Thread Safety
//
// Handlers run on the MQTT client's goroutines. All state lives in the
// monitor, which is safe for concurrent use; the bridge itself only keeps
// atomic counters.
package console
