// Package influxdb provides InfluxDB connectivity for Vigil Core.
//
// It wraps the official influxdb-client-go v2 library with Vigil-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Device lifecycle telemetry (registrations, keep-alives, expiries)
//   - Fire lag tracking (how far past the scheduled second a fire landed)
//   - Poller cadence metrics
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "vigil",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePoint("device_lifecycle",
//	    map[string]string{"event": "device_expired"},
//	    map[string]any{"lag": 3})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). A lost point is acceptable here; telemetry never sits on
// the expiry path.
package influxdb
