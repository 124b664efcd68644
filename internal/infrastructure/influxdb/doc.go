// Package influxdb provides InfluxDB connectivity for simulator telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched writes and health monitoring.
//
// # Purpose
//
// Two measurements are written:
//   - attribute_update: every attribute value applied to a hosted resource
//     (tags uri, attribute, host)
//   - automation_session: one point per finished update or request session
//     (tags uri, kind, state, host)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Simulator.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteAttribute("/a/light", "level", 2)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking; failures go to the SetLogger logger and are
// counted by FailedWrites.
package influxdb
