// Package eventlog is the append-only sink for EVENT and LED dispatches.
//
// Records are plain text lines, `type,payload,timestamp` terminated with
// CRLF, matching what the downstream collection tooling already parses.
// The sink guarantees flush-and-close on shutdown; it makes no durability
// promise beyond that.
package eventlog
