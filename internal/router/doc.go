// Package router is the hub's core: a small worker pool that moves
// messages between transports through two bounded queues.
//
// # Topology
//
//	UDP ingress ──┐
//	              ├─> inbound queue ─> dispatch ─> outbound queue ─> egress
//	serial ingress┘
//
// One ingress worker per transport kind, exactly one dispatch worker,
// exactly one egress worker. The dispatch worker is the sole writer of
// the device registry and the sole producer of event-log records, which
// keeps both free of write races without further coordination.
//
// # Lifecycle
//
// The router runs a strict state machine Stopped → Starting → Running →
// Stopping → Stopped. Workers block on their transport or queue with a
// bounded poll interval, so cooperative cancellation is observed within
// one interval and Stop never force-kills anything.
//
// # Error Containment
//
// Per-message failures (malformed frames, unknown kinds, send errors)
// are logged, counted in Stats, and dropped. Only the primary network
// bind at startup is fatal.
package router
