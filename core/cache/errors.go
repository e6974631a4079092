package cache

import "errors"

var (
	// ErrInvalidPattern is returned by InvalidateByPattern when the pattern does not compile.
	ErrInvalidPattern = errors.New("invalid invalidation pattern")

	// ErrSweepNotRunning is reported by Healthcheck when the sweep is configured but stopped.
	ErrSweepNotRunning = errors.New("cache sweep is configured but not running")
)
