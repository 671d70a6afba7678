package router

import "errors"

// Domain errors for the router lifecycle and dispatch path.
// Use errors.Is() to check for these in calling code.
var (
	// ErrAlreadyRunning is returned when Start is called on a running router.
	ErrAlreadyRunning = errors.New("router: already running")

	// ErrNotRunning is returned for operations that need a running router.
	ErrNotRunning = errors.New("router: not running")

	// ErrDispatchFailed wraps per-message dispatch failures: unknown LED
	// tokens, strategy errors, full queues. Always contained in the worker
	// that hit it; the loop carries on.
	ErrDispatchFailed = errors.New("router: dispatch failed")
)
