// Package telemetry fans automation events out to metrics, time-series
// storage, session history and the live event feed.
//
//	simulator.Resource ──┐                        ┌─► Metrics (Prometheus)
//	 (update sessions)   │                        ├─► influxdb.Client
//	                     ├─► Recorder ────────────┼─► history.Repository
//	client.RemoteResource┘   Updates()/Requests() └─► EventPublisher (WebSocket)
//	 (request sessions)
//
// Every sink is optional. A Recorder with no sinks only logs.
//
// # Key Types
//
//   - Metrics: Prometheus collectors on a private registry, served by Handler
//   - Recorder: implements simulator.Reporter (via Updates) and
//     client.Reporter (via Requests), plus observer and notify callbacks
//   - Event: what the live feed publishes
//
// # Failure Modes
//
// Sink failures are logged and dropped. Reporter methods run on session
// goroutines, so history writes are bounded by a short timeout.
package telemetry
