package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/config"
)

type otpConfig struct {
	Length int           `env:"CFGTEST_OTP_LENGTH" envDefault:"4"`
	TTL    time.Duration `env:"CFGTEST_OTP_TTL" envDefault:"5m"`
}

type requiredConfig struct {
	Token string `env:"CFGTEST_REQUIRED_TOKEN,required"`
}

type cachedConfig struct {
	Value string `env:"CFGTEST_CACHED_VALUE" envDefault:"first"`
}

// Tests here mutate process env and the package cache, so they run serially.

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	config.Reset()
	t.Setenv("CFGTEST_OTP_TTL", "90s")

	var cfg otpConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 4, cfg.Length)
	assert.Equal(t, 90*time.Second, cfg.TTL)
}

func TestLoad_RequiredMissing(t *testing.T) {
	config.Reset()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *otpConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoad_CachedPerType(t *testing.T) {
	config.Reset()
	t.Setenv("CFGTEST_CACHED_VALUE", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))

	t.Setenv("CFGTEST_CACHED_VALUE", "second")
	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Value)

	config.Reset()
	var c cachedConfig
	require.NoError(t, config.Load(&c))
	assert.Equal(t, "second", c.Value)
}
