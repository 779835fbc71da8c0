package domain

import (
	"fmt"
	"time"
)

// PollerConfig holds poller configuration.
type PollerConfig struct {
	// Interval is the time between the start of consecutive poll cycles.
	Interval time.Duration

	// MaxConcurrentPolls bounds how many documents are processed at once.
	MaxConcurrentPolls int

	// DebounceWindow is the minimum time between two notifications
	// for the same tracked document.
	DebounceWindow time.Duration

	// RetryAttempts is the total number of fetch attempts per document.
	RetryAttempts int

	// RetryDelays are the waits between attempts. The last value is reused
	// when there are more attempts than delays.
	RetryDelays []time.Duration

	// FetchTimeout bounds a single fetch attempt.
	FetchTimeout time.Duration

	// CacheTTL is how long a fetched snapshot is served from cache.
	CacheTTL time.Duration
}

// DefaultPollerConfig returns sensible defaults for the poller.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:           5 * time.Minute,
		MaxConcurrentPolls: 5,
		DebounceWindow:     30 * time.Minute,
		RetryAttempts:      3,
		RetryDelays:        []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second},
		FetchTimeout:       10 * time.Second,
		CacheTTL:           30 * time.Second,
	}
}

// RetryDelay returns the wait before attempt n+1, where n counts from 1.
func (c PollerConfig) RetryDelay(n int) time.Duration {
	if len(c.RetryDelays) == 0 || n < 1 {
		return 0
	}
	if n > len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[n-1]
}

// Validate checks the configuration is usable.
func (c PollerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidInput)
	}
	if c.MaxConcurrentPolls < 1 {
		return fmt.Errorf("%w: max concurrent polls must be at least 1", ErrInvalidInput)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("%w: debounce window cannot be negative", ErrInvalidInput)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1", ErrInvalidInput)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalidInput)
	}
	return nil
}
