// Package logger builds slog loggers and provides attribute helpers so log
// keys stay consistent across packages.
//
// Basic usage:
//
//	import "github.com/webstudio/sitekit/core/logger"
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "sitekit"))
//	log.Info("cache closed", logger.Component("cache"), logger.Count("entries", n))
//
// New defaults to text output at info level on stdout. WithDevelopment,
// WithStaging and WithProduction set format and level for an environment and
// attach "service" and "env" attributes to every record.
//
// # Context extraction
//
// WithContextExtractors pulls attributes out of the context for every record
// logged with one of the *Context methods:
//
//	log := logger.New(logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//		id, ok := middleware.GetRequestID(ctx)
//		return logger.RequestID(id), ok
//	}))
//
// # Attributes
//
// Helpers return slog.Attr values with fixed keys:
//
//	logger.Error(err)                 // "error"
//	logger.Component("cache")         // "component"
//	logger.CacheKey("page:/pricing")  // "cache_key"
//	logger.Elapsed(start)             // "elapsed"
//
// Error and RequestID return an empty attribute for nil or empty input, which
// slog handlers skip.
//
// Discard returns a logger that writes nowhere. Packages use it as the default
// when no logger is configured.
package logger
