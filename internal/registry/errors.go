package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrBadRegistration) {
//	    // drop the DEVICE packet, keep dispatching
//	}
var (
	// ErrBadRegistration is returned when a DEVICE payload yields an empty
	// device type or address. Recoverable: the packet is dropped.
	ErrBadRegistration = errors.New("registry: bad registration")
)
