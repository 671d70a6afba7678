package mqtt

import "fmt"

// Topic prefixes for the hub's bus bridge.
//
// All topics live under the flat scheme: khanda/{category}/{id}
const (
	// TopicPrefix is the base for all hub topics.
	TopicPrefix = "khanda"

	// TopicPrefixEvents is the base for dispatched-event topics.
	TopicPrefixEvents = "khanda/events"

	// TopicPrefixRegistry is the base for device-registration topics.
	TopicPrefixRegistry = "khanda/registry"
)

// Topics provides builders for the hub's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Event("LED") // "khanda/events/LED"
type Topics struct{}

// Event returns the topic an event of the given type is published on.
//
// Example: khanda/events/EVENT
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// Registry returns the per-device registration topic. Registrations are
// published retained, so late subscribers see the current roster.
//
// Example: khanda/registry/10.0.0.5
func (Topics) Registry(address string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixRegistry, address)
}

// SystemStatus returns the hub online/offline topic. Retained and backed
// by the connection's LWT.
//
// Example: khanda/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}
