package services

import (
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Config keys for settings storage.
const (
	keyTenant             = "tenant"
	keyPollerInterval     = "poller.interval"
	keyPollerMaxConcur    = "poller.max_concurrent_polls"
	keyPollerDebounce     = "poller.debounce_window"
	keyPollerRetries      = "poller.retry_attempts"
	keyPollerRetryDelays  = "poller.retry_delays"
	keyPollerFetchTimeout = "poller.fetch_timeout"
	keyPollerCacheTTL     = "poller.cache_ttl"
)

// LoadPollerConfig reads poller settings, falling back to
// domain.DefaultPollerConfig for missing or invalid values.
func LoadPollerConfig(cs driven.ConfigStore) domain.PollerConfig {
	cfg := domain.DefaultPollerConfig()
	if cs == nil {
		return cfg
	}

	if d := cs.GetDuration(keyPollerInterval); d > 0 {
		cfg.Interval = d
	}
	if n := cs.GetInt(keyPollerMaxConcur); n > 0 {
		cfg.MaxConcurrentPolls = n
	}
	// A zero debounce window is valid and disables debouncing.
	if _, ok := cs.Get(keyPollerDebounce); ok {
		if d := cs.GetDuration(keyPollerDebounce); d >= 0 {
			cfg.DebounceWindow = d
		}
	}
	if n := cs.GetInt(keyPollerRetries); n > 0 {
		cfg.RetryAttempts = n
	}
	if delays := cs.GetDurationSlice(keyPollerRetryDelays); len(delays) > 0 {
		cfg.RetryDelays = delays
	}
	if d := cs.GetDuration(keyPollerFetchTimeout); d > 0 {
		cfg.FetchTimeout = d
	}
	if d := cs.GetDuration(keyPollerCacheTTL); d > 0 {
		cfg.CacheTTL = d
	}

	return cfg
}

// LoadTenant returns the configured tenant, or domain.DefaultTenant.
func LoadTenant(cs driven.ConfigStore) domain.TenantID {
	if cs == nil {
		return domain.DefaultTenant
	}
	if t := cs.GetString(keyTenant); t != "" {
		return domain.TenantID(t)
	}
	return domain.DefaultTenant
}
