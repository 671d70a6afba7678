// Package psu drives a TP3005P bench power supply over its serial line
// protocol.
//
// The instrument speaks short ASCII commands terminated with CRLF and
// tolerates at most one command every 50 milliseconds; Device serializes
// access and enforces the pacing so callers never have to think about it.
// Queries return the raw numeric text the instrument sends, parsed into
// float64 where the protocol defines a numeric reply.
package psu
