// Package mqtt bridges hub activity onto an MQTT broker.
//
// The bridge is publish-only and strictly optional: when disabled in
// config the hub runs without it, and after startup every publish
// failure is contained to a log line rather than affecting dispatch.
//
// # Topic Layout
//
//	khanda/events/<type>        dispatched events, one topic per message type
//	khanda/registry/<address>   device registrations, retained
//	khanda/system/status        hub online/offline, retained, backed by LWT
//
// The Last Will and Testament on khanda/system/status means subscribers
// can tell a crashed hub from a gracefully stopped one: the broker
// publishes the LWT payload on unexpected disconnect, while Close
// publishes a graceful_shutdown payload itself.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Reconnection is automatic
// with exponential backoff.
package mqtt
