package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/webstudio/sitekit/core/cache"
	"github.com/webstudio/sitekit/core/cachehttp"
	"github.com/webstudio/sitekit/core/config"
	"github.com/webstudio/sitekit/core/health"
	"github.com/webstudio/sitekit/core/logger"
	"github.com/webstudio/sitekit/core/server"
	"github.com/webstudio/sitekit/middleware"
	"github.com/webstudio/sitekit/pkg/cachemetrics"
	"github.com/webstudio/sitekit/pkg/ratelimiter"
)

// Config is the service configuration, loaded from the environment and an optional .env file.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"sitekit"`
	Env     string `env:"ENV" envDefault:"development"`

	Cache     cache.Config
	Server    server.Config
	RateLimit ratelimiter.Config
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service exposing health, metrics and cache admin routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg Config
			if err := config.Load(&cfg); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg Config) error {
	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.AppName))

	pages := cache.NewMemoryFromConfig[[]byte](cfg.Cache, cache.WithLogger(log))
	defer func() {
		if err := pages.Close(); err != nil {
			log.Error("failed to close cache", logger.Error(err))
		}
	}()

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	limiterStore := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(time.Minute),
		ratelimiter.WithMemoryStoreLogger(log),
	)
	limiter, err := ratelimiter.NewBucket(limiterStore, cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		cachemetrics.NewCollector(cfg.AppName, "pages", pages),
	)

	handler := routes(log, pages, reg, limiter, pages.Healthcheck, limiterStore.Healthcheck)

	log.InfoContext(ctx, "service starting",
		logger.Component("sitekit"),
		slog.String("addr", cfg.Server.Addr),
		slog.Int("cache_max_size", cfg.Cache.MaxSize),
		slog.Duration("cache_default_ttl", cfg.Cache.DefaultTTL))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(limiterStore.Run(ctx))
	g.Go(srv.Run(ctx, handler))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("service stopped", logger.Component("sitekit"))
	return nil
}

func routes(
	log *slog.Logger,
	pages *cache.Memory[[]byte],
	reg *prometheus.Registry,
	limiter ratelimiter.RateLimiter,
	checks ...health.Check,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(log, checks...))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	limit := middleware.RateLimitWithConfig(middleware.RateLimitConfig{
		Limiter:    limiter,
		SetHeaders: true,
		Logger:     log,
	})
	cachehttp.New(pages, log).Register(mux, "", limit)
	cachehttp.NewPages(pages, log).Register(mux, "", limit)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger: log,
			Skip: func(r *http.Request) bool {
				return r.URL.Path == "/health/live" || r.URL.Path == "/metrics"
			},
		}),
	)
}
