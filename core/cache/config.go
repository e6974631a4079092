package cache

import (
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultMaxSize is the default maximum number of entries.
	DefaultMaxSize = 1000

	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 5 * time.Minute

	// DefaultCleanupInterval is the default period between expiry sweeps.
	DefaultCleanupInterval = time.Minute
)

// Config holds cache configuration with environment variable support.
type Config struct {
	// MaxSize is the entry ceiling before LRU eviction kicks in. Zero or negative means unbounded.
	MaxSize int `env:"CACHE_MAX_SIZE" envDefault:"1000"`

	// DefaultTTL is used when Set is called without an explicit TTL.
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"5m"`

	// CleanupInterval is the sweep period. Zero or negative disables the sweep.
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"1m"`

	// EnableStats toggles counter maintenance.
	EnableStats bool `env:"CACHE_ENABLE_STATS" envDefault:"true"`
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:         DefaultMaxSize,
		DefaultTTL:      DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
		EnableStats:     true,
	}
}

// options is the resolved construction state shared by every Option.
type options struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions(cfg Config) options {
	return options{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
}

// Option configures a Memory cache.
type Option func(*options)

// WithMaxSize sets the maximum number of entries. Zero or negative disables LRU eviction.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.cfg.MaxSize = n
	}
}

// WithDefaultTTL sets the TTL used when none is given to Set.
// Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.cfg.DefaultTTL = ttl
		}
	}
}

// WithCleanupInterval sets the sweep period.
// Set to 0 to disable the background sweep; lazy expiry still applies.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) {
		o.cfg.CleanupInterval = interval
	}
}

// WithStats enables or disables counter maintenance.
func WithStats(enabled bool) Option {
	return func(o *options) {
		o.cfg.EnableStats = enabled
	}
}

// WithLogger sets the logger for internal operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
