package psu

import "errors"

var (
	// ErrNotAttached is returned when an operation needs an instrument
	// connection and none is attached.
	ErrNotAttached = errors.New("psu: no instrument attached")

	// ErrBadResponse is returned when the instrument replies with something
	// the protocol does not define for the query sent.
	ErrBadResponse = errors.New("psu: unexpected response")

	// ErrCloseFailed is returned when detaching the instrument fails.
	ErrCloseFailed = errors.New("psu: close failed")
)
