package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPollerConfig(t *testing.T) {
	cfg := DefaultPollerConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, 5, cfg.MaxConcurrentPolls)
	assert.Equal(t, 30*time.Minute, cfg.DebounceWindow)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestPollerConfig_RetryDelay(t *testing.T) {
	cfg := PollerConfig{RetryDelays: []time.Duration{time.Second, 3 * time.Second}}

	assert.Zero(t, cfg.RetryDelay(0))
	assert.Equal(t, time.Second, cfg.RetryDelay(1))
	assert.Equal(t, 3*time.Second, cfg.RetryDelay(2))
	assert.Equal(t, 3*time.Second, cfg.RetryDelay(7), "last delay is reused")
	assert.Zero(t, PollerConfig{}.RetryDelay(1))
}

func TestPollerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*PollerConfig)
	}{
		{name: "zero interval", modify: func(c *PollerConfig) { c.Interval = 0 }},
		{name: "no concurrency", modify: func(c *PollerConfig) { c.MaxConcurrentPolls = 0 }},
		{name: "negative debounce", modify: func(c *PollerConfig) { c.DebounceWindow = -time.Second }},
		{name: "no attempts", modify: func(c *PollerConfig) { c.RetryAttempts = 0 }},
		{name: "no fetch timeout", modify: func(c *PollerConfig) { c.FetchTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPollerConfig()
			tt.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
		})
	}

	zeroDebounce := DefaultPollerConfig()
	zeroDebounce.DebounceWindow = 0
	assert.NoError(t, zeroDebounce.Validate())
}
