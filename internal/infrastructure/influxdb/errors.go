package influxdb

import "errors"

// Sentinel errors for the telemetry client, checked with errors.Is.
//
// Write failures never surface here: the write API is non-blocking and
// reports asynchronously through the SetOnError callback.
var (
	// ErrNotConnected indicates an operation was attempted before Connect
	// or after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates Connect could not verify the server.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates telemetry is switched off in configuration;
	// callers treat it as "do not attach the observer", not as a failure.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
