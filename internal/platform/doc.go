// Package platform hosts simulated resources and reaches remote ones over
// the MQTT bus.
//
//	 simulator A                    broker                    simulator B
//	┌────────────┐  request/{A}   ┌────────┐  request/{A}   ┌────────────┐
//	│ Platform   │◄───────────────┤        │◄───────────────┤ Platform   │
//	│  hosted:   │  response/{B}  │        │  response/{B}  │  pending:  │
//	│  /a/light ─┼───────────────►│        ├───────────────►│  req-id    │
//	│            │  notify/{B}    │        │  notify/{B}    │  observes  │
//	│            ├───────────────►│        ├───────────────►│            │
//	│            │ discovery/A/.. │        │ discovery/#    │ discovered │
//	└────────────┘ (retained) ───►└────────┘───────────────►└────────────┘
//
// Platform implements simulator.Platform for the resources this process
// hosts, and hands out a client.Transport per remote host via Transport.
// Every message body is JSON; representations use the schema package's
// JSON form.
//
// # Key Types
//
//   - Platform: the adapter; Start subscribes, Close unsubscribes
//   - Bus: the publish/subscribe surface of *mqtt.Client
//
// # Failure Modes
//
//   - A request with no response within the timeout is completed with
//     ErrTimeout; a late response is dropped.
//   - Requests for an unknown URI are answered with code 404.
//   - Close completes every pending request with ErrClosed.
//   - An offline status from a host (including its will) drops that host's
//     discovered resources.
package platform
