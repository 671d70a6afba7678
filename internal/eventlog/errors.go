package eventlog

import "errors"

// ErrClosed is returned for appends after the sink has been closed.
var ErrClosed = errors.New("eventlog: closed")
