package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstudio/sitekit/core/cache"
	"github.com/webstudio/sitekit/core/config"
)

type testConfig struct {
	Name    string        `env:"SITEKIT_TEST_NAME" envDefault:"site"`
	Timeout time.Duration `env:"SITEKIT_TEST_TIMEOUT" envDefault:"3s"`
}

type requiredConfig struct {
	Secret string `env:"SITEKIT_TEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("SITEKIT_TEST_NAME", "marketing")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "marketing", cfg.Name)
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	// Cached per type: environment changes are not picked up until Reset.
	t.Setenv("SITEKIT_TEST_NAME", "changed")
	var again testConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "marketing", again.Name)

	config.Reset()
	var fresh testConfig
	require.NoError(t, config.Load(&fresh))
	assert.Equal(t, "changed", fresh.Name)
}

func TestLoad_Errors(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	assert.ErrorIs(t, config.Load[testConfig](nil), config.ErrNilConfig)

	var cfg requiredConfig
	assert.Error(t, config.Load(&cfg))
	assert.Panics(t, func() { config.MustLoad(&requiredConfig{}) })
}

func TestLoad_CacheConfig(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("CACHE_MAX_SIZE", "50")
	t.Setenv("CACHE_DEFAULT_TTL", "30s")
	t.Setenv("CACHE_ENABLE_STATS", "false")

	var cfg cache.Config
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 50, cfg.MaxSize)
	assert.Equal(t, 30*time.Second, cfg.DefaultTTL)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.False(t, cfg.EnableStats)
}
