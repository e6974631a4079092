// Package middleware provides net/http middleware for request IDs, request
// logging and per-client rate limiting.
//
//	h := middleware.Chain(mux,
//		middleware.RequestID,
//		middleware.Logging(log),
//	)
//
// RateLimit wraps routes that should be throttled per client:
//
//	mux.Handle("POST /cache/invalidate", middleware.RateLimit(limiter)(invalidate))
package middleware
