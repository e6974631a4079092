package async

import "errors"

var (
	// ErrTimeout is returned by AwaitWithTimeout when the deadline passes first.
	ErrTimeout = errors.New("async: operation timed out")

	// ErrNoFutures is returned by WaitAny when called without futures.
	ErrNoFutures = errors.New("async: no futures provided")

	// ErrPanic wraps a value recovered from a panicking async function.
	ErrPanic = errors.New("async: function panicked")
)
