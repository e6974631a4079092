// Package config loads typed configuration from environment variables.
//
// A .env file in the working directory is read once on first use (missing
// files are ignored), then caarlos0/env parses the environment into the
// struct's `env` tags. Each type is loaded once and cached:
//
//	import "github.com/webstudio/sitekit/core/config"
//
//	type Config struct {
//		AppName string `env:"APP_NAME" envDefault:"sitekit"`
//
//		Cache  cache.Config
//		Server server.Config
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning an error, for use at startup.
// Reset drops the cache; tests use it after changing the environment.
package config
