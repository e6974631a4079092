package cachehttp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/webstudio/sitekit/core/logger"
)

// DefaultMaxPageBytes limits stored page bodies.
const DefaultMaxPageBytes = 1 << 20

// PageStore is the part of a byte cache the page routes use. *cache.Memory[[]byte] satisfies it.
type PageStore interface {
	Get(key string) ([]byte, bool)
	SetWithTags(key string, value []byte, tags []string, ttl time.Duration)
}

// Pages stores and serves rendered page bodies.
//
//	PUT /cache/pages/{key...}   store the body; optional ?ttl=30s and repeatable ?tag=
//	GET /cache/pages/{key...}   return the stored body, or 404
type Pages struct {
	store    PageStore
	logger   *slog.Logger
	maxBytes int64
}

// NewPages creates a Pages handler. A nil logger discards output.
func NewPages(store PageStore, log *slog.Logger) *Pages {
	if log == nil {
		log = logger.Discard()
	}
	return &Pages{store: store, logger: log, maxBytes: DefaultMaxPageBytes}
}

// Register mounts the page routes on mux under prefix. PUT is wrapped in mws.
func (p *Pages) Register(mux *http.ServeMux, prefix string, mws ...func(http.Handler) http.Handler) {
	mux.HandleFunc("GET "+prefix+"/cache/pages/{key...}", p.Get)
	mux.Handle("PUT "+prefix+"/cache/pages/{key...}", wrap(http.HandlerFunc(p.Put), mws))
}

// Get writes the cached body for the key in the path.
func (p *Pages) Get(w http.ResponseWriter, r *http.Request) {
	body, ok := p.store.Get(r.PathValue("key"))
	if !ok {
		writeError(w, http.StatusNotFound, "page not cached")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Put stores the request body under the key in the path.
func (p *Pages) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()

	var ttl time.Duration
	if raw := q.Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a positive duration")
			return
		}
		ttl = d
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "page body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	p.store.SetWithTags(key, body, q["tag"], ttl)
	p.logger.DebugContext(r.Context(), "page cached",
		logger.Component("cachehttp"),
		logger.CacheKey(key),
		logger.Count("bytes", len(body)))

	w.WriteHeader(http.StatusNoContent)
}
