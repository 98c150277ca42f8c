// Package mqtt provides MQTT client connectivity for Vigil Core.
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
// Vigil publishes device lifecycle events and triggered last wills to the
// broker so downstream consumers (alerting, delivery agents) can react
// without polling the HTTP API. Devices may also send keep-alives over MQTT
// as a lighter alternative to the HTTP endpoint.
//
//	Device agents → MQTT Broker → Vigil Core → MQTT Broker → Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Last will payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish a triggered last will
//	topic := mqtt.Topics{}.LastWill("3f2a...")
//	client.Publish(topic, payload, 1, false)
//
//	// Receive keep-alives from device agents
//	client.Subscribe(mqtt.Topics{}.AllKeepAlives(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleKeepAlive(topic)
//	    })
package mqtt
