package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the simulator.
const (
	MeasurementAttribute = "attribute_update"
	MeasurementSession   = "automation_session"
)

// SessionSummary is the outcome of one finished automation session.
type SessionSummary struct {
	Kind     string // attribute-update, resource-update or request-<method>
	URI      string
	ID       int
	State    string
	Applied  int64 // updates applied or requests sent
	Received int64
	Failures int64
	Duration time.Duration
}

// WriteAttribute records one attribute value of a hosted resource.
//
// Numeric and boolean values are stored as the field "value"; strings are
// stored as "text" so the value column keeps a single type. Values of any
// other type are skipped.
//
// Example:
//
//	client.WriteAttribute("/a/light", "level", 3)
func (c *Client) WriteAttribute(uri, attribute string, value any) {
	if !c.IsConnected() {
		return
	}

	field := "value"
	switch v := value.(type) {
	case int:
		value = int64(v)
	case int64, float64, bool:
	case string:
		field = "text"
	default:
		return
	}

	c.writePoint(MeasurementAttribute,
		map[string]string{
			"uri":       uri,
			"attribute": attribute,
		},
		map[string]any{field: value},
		time.Now(),
	)
}

// WriteSession records the summary of a finished automation session.
func (c *Client) WriteSession(s SessionSummary) {
	if !c.IsConnected() {
		return
	}

	c.writePoint(MeasurementSession,
		map[string]string{
			"uri":   s.URI,
			"kind":  s.Kind,
			"state": s.State,
		},
		map[string]any{
			"session_id":  int64(s.ID),
			"applied":     s.Applied,
			"received":    s.Received,
			"failures":    s.Failures,
			"duration_ms": s.Duration.Milliseconds(),
		},
		time.Now(),
	)
}

// writePoint adds the host tag and queues the point.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if c.host != "" {
		tags["host"] = c.host
	}
	c.sink.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
