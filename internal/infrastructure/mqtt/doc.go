// Package mqtt provides MQTT client connectivity for the simulator.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - The simulator topic hierarchy (Topics) and filter matching (Match)
//
// # Architecture
//
// Every simulator process is one MQTT client. Hosted resources and remote
// resources meet on the broker; the platform package layers requests,
// responses, observation and discovery on top of this client.
//
//	simulator A (hosts /a/light) ↔ MQTT Broker ↔ simulator B (requests)
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on localhost
//   - Credentials are validated against the broker ACL
//   - Payloads are plain JSON; nothing is encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllDiscovery(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("announced: %s", topic)
//	        return nil
//	    })
package mqtt
