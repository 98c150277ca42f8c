package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint writes a point with full control over tags and fields.
//
// This is the primary method for recording telemetry. The write is
// non-blocking; data is batched and sent asynchronously. Writes while
// disconnected are silently dropped.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("device_lifecycle",
//	    map[string]string{"event": "device_expired", "uuid": uuid},
//	    map[string]any{"fire_at": 1700000000, "lag": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a point with a specific timestamp.
//
// Use this when the timestamp is not "now", such as backfilling expiry
// points whose scheduled second is in the past.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// WriteGauge records a single named value under one measurement.
//
// Convenience for scalar service metrics:
//
//	client.WriteGauge("poller", "devices_fired", 4)
func (c *Client) WriteGauge(measurement string, name string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurement,
		map[string]string{"metric": name},
		map[string]any{"value": value},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
