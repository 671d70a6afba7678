package transport

import "errors"

// Domain errors for the transport package.
//
// Only ErrBindFailed during startup is fatal to the router; every other
// transport error is contained in the worker that encountered it. Check
// with errors.Is():
//
//	if errors.Is(err, transport.ErrTimeout) {
//	    // poll interval elapsed, re-check cancellation
//	}
var (
	// ErrBindFailed is returned when the UDP socket cannot be bound or the
	// multicast group cannot be joined. Fatal at startup.
	ErrBindFailed = errors.New("transport: bind failed")

	// ErrOpenFailed is returned when a serial link cannot be opened.
	// Non-fatal: serial devices are optional.
	ErrOpenFailed = errors.New("transport: open failed")

	// ErrWriteFailed is returned when a send on a socket or serial link fails.
	ErrWriteFailed = errors.New("transport: write failed")

	// ErrClosed is returned for operations on a closed transport handle.
	ErrClosed = errors.New("transport: closed")

	// ErrTimeout is returned when a bounded read elapses without data.
	// This is the normal cancellation-check signal, not a failure.
	ErrTimeout = errors.New("transport: read timed out")

	// ErrPortDegraded is returned for writes to a link that has been marked
	// degraded after a read failure. The link stays open for inspection; an
	// operator detaches and re-attaches the device to recover.
	ErrPortDegraded = errors.New("transport: port degraded")
)
