// Package message defines the wire-level unit exchanged with slave devices
// and the queued send unit used by the egress worker.
//
// A Message is a flat four-field JSON record (type, payload, recipient,
// timestamp). An Envelope is an encoded Message paired with a transmission
// destination. Both are transient values: created, queued once, consumed.
//
// The codec scrubs transport noise (tab, CR, LF, NUL) before decoding, and
// normalizes the single-quote convention used by serial-attached devices.
// Decode failures are non-fatal; callers drop the frame and continue.
package message
