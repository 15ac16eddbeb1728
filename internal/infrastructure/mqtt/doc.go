// Package mqtt provides MQTT client connectivity for MixLogic Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Core never talks to DJ hardware directly. The automation executor
// publishes control surface commands to mixlogic/command/{target} and a
// controller bridge on the other side of the broker turns them into MIDI
// or HID traffic. Training status is published retained so a newly
// connected bridge or dashboard sees the current mode straight away.
// In the other direction the controller bridge reports deck, mixer and
// crowd state on mixlogic/console/#, which the console bridge package
// feeds into the session monitor.
//
//	MixLogic Core ↔ MQTT Broker ↔ Controller Bridge
//
// Client.Stats counts published, received and failed messages for the
// /metrics endpoint.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) whenever the broker is not on localhost
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Command("master")
//	client.Publish(topic, []byte(`{"command":"emergency_stop"}`), 1, false)
package mqtt
