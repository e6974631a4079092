// Package server wraps http.Server with graceful shutdown, functional options
// and environment-driven configuration.
//
// # Basic Usage
//
//	srv := server.New(":8080",
//		server.WithShutdownTimeout(10*time.Second),
//		server.WithLogger(log),
//	)
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx, mux))
//	if err := eg.Wait(); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// # Configuration
//
// Config carries env tags (SERVER_ADDR, SERVER_READ_TIMEOUT, ...) and is loaded
// with the config package:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//
// When both SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE are set the server
// listens with TLS 1.2 or newer.
//
// # Lifecycle
//
// Start blocks until the context is cancelled or the listener fails. Stop shuts
// down gracefully within the configured timeout. Run combines both for use with
// errgroup.
package server
