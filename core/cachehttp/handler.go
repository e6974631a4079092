// Package cachehttp exposes cache statistics and invalidation over HTTP for the
// customer dashboard and operators.
//
// Routes registered by Register:
//
//	GET    /cache/stats        health metrics as JSON
//	GET    /cache/keys         tracked keys as JSON
//	DELETE /cache/keys/{key}   remove one key (204, or 404 when absent)
//	POST   /cache/invalidate   bulk removal by one of ?prefix=, ?pattern= or ?tag= (repeatable)
//
// Pages adds routes that store and serve raw page bodies.
package cachehttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/webstudio/sitekit/core/cache"
	"github.com/webstudio/sitekit/core/logger"
)

// Cache is the part of a cache the handlers use. *cache.Memory[V] satisfies it for any V.
type Cache interface {
	cache.TagInvalidator
	HealthMetrics() cache.HealthMetrics
}

// Handler serves the cache admin routes for one cache.
type Handler struct {
	cache  Cache
	logger *slog.Logger
}

// New creates a Handler. A nil logger discards output.
func New(c Cache, log *slog.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{cache: c, logger: log}
}

// Register mounts the routes on mux under prefix (e.g. "" or "/admin").
// The mutating routes are wrapped in mws, first one outermost.
func (h *Handler) Register(mux *http.ServeMux, prefix string, mws ...func(http.Handler) http.Handler) {
	mux.HandleFunc("GET "+prefix+"/cache/stats", h.Stats)
	mux.HandleFunc("GET "+prefix+"/cache/keys", h.Keys)
	mux.Handle("DELETE "+prefix+"/cache/keys/{key}", wrap(http.HandlerFunc(h.DeleteKey), mws))
	mux.Handle("POST "+prefix+"/cache/invalidate", wrap(http.HandlerFunc(h.Invalidate), mws))
}

func wrap(h http.Handler, mws []func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Stats writes cache health metrics.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.HealthMetrics())
}

// Keys writes all tracked keys.
func (h *Handler) Keys(w http.ResponseWriter, _ *http.Request) {
	keys := h.cache.Keys()
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys, Count: len(keys)})
}

// DeleteKey removes the key given in the path.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !h.cache.Delete(key) {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	h.logger.InfoContext(r.Context(), "cache key deleted",
		logger.Component("cachehttp"), logger.CacheKey(key))
	w.WriteHeader(http.StatusNoContent)
}

// Invalidate removes keys by exactly one of the prefix, pattern or tag query parameters.
// Sending more than one kind is a 400.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	selectors := 0
	for _, name := range []string{"prefix", "pattern", "tag"} {
		if q.Has(name) {
			selectors++
		}
	}
	if selectors > 1 {
		writeError(w, http.StatusBadRequest, "only one of prefix, pattern or tag is allowed")
		return
	}

	var (
		removed int
		by      string
	)
	switch {
	case q.Has("prefix"):
		by = "prefix"
		removed = cache.InvalidateByPrefix(h.cache, q.Get("prefix"))
	case q.Has("pattern"):
		by = "pattern"
		n, err := cache.InvalidateByPattern(h.cache, q.Get("pattern"))
		if err != nil {
			if errors.Is(err, cache.ErrInvalidPattern) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		removed = n
	case q.Has("tag"):
		by = "tag"
		removed = cache.InvalidateByTags(h.cache, q["tag"]...)
	default:
		writeError(w, http.StatusBadRequest, "one of prefix, pattern or tag is required")
		return
	}

	h.logger.InfoContext(r.Context(), "cache invalidated",
		logger.Component("cachehttp"),
		logger.Action("invalidate_by_"+by),
		logger.Count("removed", removed))

	writeJSON(w, http.StatusOK, invalidateResponse{Removed: removed})
}

type keysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type invalidateResponse struct {
	Removed int `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
