// Package mqtt provides MQTT client connectivity for Pilot Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Pilot Core uses MQTT as its external event surface: controller state
// transitions and applied switch requests are published to the bus, and
// remote callers can submit switch requests over it.
//
//	Pilot Core ↔ MQTT Broker ↔ External consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all controller state updates
//	err = client.Subscribe(mqtt.Topics{}.AllControllerStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a retained state update
//	topic := mqtt.Topics{}.ControllerState("diff_drive")
//	client.PublishRetained(topic, []byte(`{"state":"active"}`))
package mqtt
