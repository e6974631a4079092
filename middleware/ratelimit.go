package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/webstudio/sitekit/core/logger"
	"github.com/webstudio/sitekit/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip rate limiting for specific requests
	Skip func(r *http.Request) bool
	// Limiter is the rate limiting implementation to use
	Limiter ratelimiter.RateLimiter
	// KeyExtractor derives the bucket key from the request (default: ClientIP)
	KeyExtractor func(r *http.Request) string
	// SetHeaders adds X-RateLimit-* headers to every limited response
	SetHeaders bool
	// Logger records limiter failures (default: discard)
	Logger *slog.Logger
}

// RateLimit limits requests per client IP with limiter and sets rate limit headers.
func RateLimit(limiter ratelimiter.RateLimiter) func(http.Handler) http.Handler {
	return RateLimitWithConfig(RateLimitConfig{Limiter: limiter, SetHeaders: true})
}

// RateLimitWithConfig creates a rate limiting middleware. Rejected requests get
// 429 with a Retry-After header. Panics if no limiter is provided.
func RateLimitWithConfig(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = ClientIP
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyExtractor(r))
			if err != nil {
				cfg.Logger.ErrorContext(r.Context(), "rate limiter failed",
					logger.Component("ratelimit"), logger.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if cfg.SetHeaders {
				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			}

			if !res.Allowed() {
				// Round up so clients never retry before the refill.
				retry := int(math.Ceil(res.RetryAfter().Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":       http.StatusText(http.StatusTooManyRequests),
					"retry_after": retry,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address when present, else the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
