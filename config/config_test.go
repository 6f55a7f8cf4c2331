package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, "none", cfg.Provider)
	assert.Equal(t, 10*time.Second, cfg.NarrationTimeout)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORYMESH_ROUNDS", "7")
	t.Setenv("STORYMESH_PROVIDER", "mock")
	t.Setenv("STORYMESH_NARRATION_TIMEOUT", "250ms")
	t.Setenv("STORYMESH_SEED", "42")
	t.Setenv("STORYMESH_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Rounds)
	assert.Equal(t, "mock", cfg.Provider)
	assert.Equal(t, 250*time.Millisecond, cfg.NarrationTimeout)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STORYMESH_ROUNDS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := SessionConfig{
		Rounds:           3,
		Provider:         "none",
		NarrationTimeout: time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Provider = "carrier-pigeon"
	assert.Error(t, bad.Validate())

	bad = base
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = base
	bad.NarrationTimeout = 0
	assert.Error(t, bad.Validate())
}
