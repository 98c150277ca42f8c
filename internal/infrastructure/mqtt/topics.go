package mqtt

import "fmt"

// Topic prefixes for the Vigil MQTT namespace.
//
// All topics use the flat scheme: vigil/{category}/{identifier}
const (
	// TopicPrefix is the base for all Vigil topics.
	TopicPrefix = "vigil"

	// TopicPrefixEvent is the base for device lifecycle event topics.
	TopicPrefixEvent = "vigil/event"

	// TopicPrefixLastWill is the base for triggered last will topics.
	TopicPrefixLastWill = "vigil/lastwill"

	// TopicPrefixKeepAlive is the base for inbound keep-alive topics.
	TopicPrefixKeepAlive = "vigil/keepalive"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "vigil/system"
)

// Topics provides builders for Vigil MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	willTopic := topics.LastWill("3f2a09c4-...")
//	// Returns: "vigil/lastwill/3f2a09c4-..."
type Topics struct{}

// Event returns the topic for a device lifecycle event.
//
// Example: vigil/event/device_expired
func (Topics) Event(eventName string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventName)
}

// LastWill returns the topic a device's triggered last will is delivered on.
// The payload published here is the registered last will, verbatim.
//
// Example: vigil/lastwill/3f2a09c4-7d1e-4b8a-9c3f-2e5d6a7b8c9d
func (Topics) LastWill(uuid string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixLastWill, uuid)
}

// KeepAlive returns the topic a device agent publishes keep-alives on.
// The payload is ignored; the device UUID is carried in the topic.
//
// Example: vigil/keepalive/3f2a09c4-7d1e-4b8a-9c3f-2e5d6a7b8c9d
func (Topics) KeepAlive(uuid string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixKeepAlive, uuid)
}

// SystemStatus returns the service status topic. Vigil publishes its
// online/offline status here, retained, with the LWT covering crashes.
//
// Example: vigil/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching all lifecycle events.
//
// Pattern: vigil/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllKeepAlives returns a pattern matching keep-alives from every device.
//
// Pattern: vigil/keepalive/+
func (Topics) AllKeepAlives() string {
	return fmt.Sprintf("%s/+", TopicPrefixKeepAlive)
}

// AllLastWills returns a pattern matching every triggered last will.
//
// Pattern: vigil/lastwill/+
func (Topics) AllLastWills() string {
	return fmt.Sprintf("%s/+", TopicPrefixLastWill)
}

// AllTopics returns a pattern matching all Vigil topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: vigil/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
