package message

import "errors"

// Domain errors for the message package.
//
// Decode failures are always recoverable: the worker that hit one drops the
// frame and continues. Check with errors.Is():
//
//	if errors.Is(err, message.ErrMalformed) {
//	    // drop frame, keep the loop alive
//	}
var (
	// ErrMalformed is returned when a frame is not valid JSON.
	ErrMalformed = errors.New("message: malformed frame")

	// ErrMissingField is returned when a required wire field is absent.
	ErrMissingField = errors.New("message: missing field")

	// ErrEncode is returned when a message cannot be serialized.
	ErrEncode = errors.New("message: encode failed")

	// ErrFrameTooLarge is returned when a raw frame exceeds the configured
	// maximum. The frame is dropped whole; no partial decode is attempted.
	ErrFrameTooLarge = errors.New("message: frame too large")
)
