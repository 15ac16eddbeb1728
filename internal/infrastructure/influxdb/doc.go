// Package influxdb provides InfluxDB connectivity for MixLogic Core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched point writes, and health monitoring.
//
// # Measurements
//
//   - decisions: one point per engine decision (tags: session_id, action, mode)
//   - training_status: accuracy and progress over time (tags: session_id, mode)
//   - session_energy: crowd energy against its target (tag: session_id)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDecision(influxdb.DecisionPoint{
//	    SessionID: "friday", Action: "start_mix", Confidence: 0.91,
//	})
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
