package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.applyDefaults()

	g := c.Generation
	assert.Equal(t, 3, g.MaxAttempts)
	assert.Equal(t, time.Second, g.RetryDelay)
	assert.Equal(t, 2*time.Second, g.RateLimitBackoff)
	assert.Equal(t, 3, g.MaxRateLimitWaits)
	assert.Equal(t, 90*time.Second, g.ModelTimeout)
	assert.Equal(t, "General sightseeing", g.DefaultInterests)
	assert.Equal(t, 14, g.MaxDuration)
	assert.InDelta(t, 0.015, g.JitterDegrees, 1e-9)
	assert.Equal(t, 5*time.Second, g.InteractionTimeout)
	assert.Equal(t, "generation:sequence", g.SequenceKey)
	assert.Equal(t, 10*time.Second, c.Places.HTTPTimeout)
	assert.Equal(t, 24*time.Hour, c.Places.CacheTTL)
	assert.Equal(t, 5*time.Minute, c.Server.RequestTimeout)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	var c Config
	c.Generation.MaxAttempts = 5
	c.Generation.DefaultInterests = "Food"
	c.Server.RequestTimeout = time.Minute
	c.applyDefaults()

	assert.Equal(t, 5, c.Generation.MaxAttempts)
	assert.Equal(t, "Food", c.Generation.DefaultInterests)
	assert.Equal(t, time.Minute, c.Server.RequestTimeout)
}

func TestInitConfig(t *testing.T) {
	t.Setenv("GENERATION_MAXATTEMPTS", "4")
	t.Setenv("GENERATION_STRICT", "true")

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, 4, cfg.Generation.MaxAttempts)
	assert.True(t, cfg.Generation.Strict)
	assert.Equal(t, []string{"gemini-2.5-flash-lite", "gemini-2.0-flash"}, cfg.Generation.Models)
	assert.Equal(t, 200*time.Millisecond, cfg.Generation.PlaceLookupDelay)
	assert.True(t, cfg.Places.EnrichmentEnabled)
}
