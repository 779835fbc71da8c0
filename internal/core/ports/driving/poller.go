package driving

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// Poller runs the periodic change-detection cycle.
type Poller interface {
	// Start runs poll cycles until Stop is called or ctx is cancelled.
	// The first cycle runs immediately. Blocks until stopped.
	Start(ctx context.Context) error

	// Stop halts the loop and waits for the in-flight cycle to settle.
	Stop() error

	// UpdateConfig replaces the configuration from the next cycle onwards.
	UpdateConfig(cfg domain.PollerConfig) error

	// Metrics returns a snapshot of the polling metrics.
	Metrics() domain.PollingMetrics
}
