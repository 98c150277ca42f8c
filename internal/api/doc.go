// Package api implements the HTTP REST API for Vigil Core.
//
// This package provides:
//   - REST endpoints for device registration, keep-alive, and removal
//   - Health endpoint reporting per-component status
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Architecture
//
// The API server is a thin transport over the message bus: writes are
// dispatched as commands and reads go through the service's query methods.
// No registry state lives in this package, so the HTTP surface can be
// swapped or supplemented (the MQTT keep-alive path) without touching the
// core.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB connected; those components
// simply report their status through /health.
package api
