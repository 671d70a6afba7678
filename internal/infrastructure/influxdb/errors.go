package influxdb

import "errors"

// Sentinel errors for the event-history mirror.
//
// Check with errors.Is():
//
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without the mirror
//	}
var (
	// ErrDisabled indicates the mirror is switched off in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")
)
