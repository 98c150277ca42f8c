// Package notify holds the event observers: side-effect-only handlers
// subscribed to device lifecycle events on the bus.
//
// Three observers ship by default: structured logging, MQTT publishing,
// and InfluxDB telemetry. Each is attached independently and their failures
// are isolated by the bus, so a down broker never breaks a command or a
// sibling observer. This is the extension point for new delivery channels:
// write an observer, attach it, touch nothing else.
package notify
