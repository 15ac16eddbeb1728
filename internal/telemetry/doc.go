// Package telemetry forwards training and session state to the outside
// world: InfluxDB points for dashboards and retained MQTT status for
// controller bridges.
//
// A Sink is registered as a training.Manager observer and, optionally,
// samples a session context source on a ticker. Either output may be nil,
// so a deployment without InfluxDB or MQTT still runs the same code path.
package telemetry
