package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// Metrics aggregates poller counters for the process lifetime.
// Rolling counters keep event timestamps and drop those older than
// domain.MetricsWindow.
type Metrics struct {
	mu sync.Mutex

	window time.Duration

	operations    []time.Time
	errors        []time.Time
	notifications []time.Time
	apiCalls      []time.Time
	rateLimits    []time.Time

	docsTracked       int
	cyclesCompleted   int
	lastPollStartedAt time.Time
	lastPollDuration  time.Duration
	successRate       float64
}

// NewMetrics creates an empty metrics aggregate.
func NewMetrics() *Metrics {
	return &Metrics{
		window:      domain.MetricsWindow,
		successRate: 1,
	}
}

// RecordAPICall counts one request sent to the provider.
func (m *Metrics) RecordAPICall(at time.Time, rateLimited bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiCalls = append(prune(m.apiCalls, at, m.window), at)
	if rateLimited {
		m.rateLimits = append(prune(m.rateLimits, at, m.window), at)
	}
}

// RecordRateLimited counts a rate-limit rejection for a request that was
// never sent, such as one refused during a backoff window.
func (m *Metrics) RecordRateLimited(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimits = append(prune(m.rateLimits, at, m.window), at)
}

// RecordOperation counts one attempted document poll or one failed listing.
func (m *Metrics) RecordOperation(at time.Time, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(prune(m.operations, at, m.window), at)
	if failed {
		m.errors = append(prune(m.errors, at, m.window), at)
	}
}

// RecordNotification counts one delivered notification.
func (m *Metrics) RecordNotification(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(prune(m.notifications, at, m.window), at)
}

// RecordCycle stores the outcome of a completed poll cycle. total and
// succeeded count documents; failedListings counts store listings that
// failed, each one an unsuccessful unit of the cycle.
func (m *Metrics) RecordCycle(startedAt time.Time, duration time.Duration, total, succeeded, failedListings int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cyclesCompleted++
	m.docsTracked = total
	m.lastPollStartedAt = startedAt
	m.lastPollDuration = duration
	units := total + failedListings
	if units == 0 {
		m.successRate = 1
	} else {
		m.successRate = float64(succeeded) / float64(units)
	}
}

// Snapshot returns the metrics as of now.
func (m *Metrics) Snapshot(now time.Time) domain.PollingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations = prune(m.operations, now, m.window)
	m.errors = prune(m.errors, now, m.window)
	m.notifications = prune(m.notifications, now, m.window)
	m.apiCalls = prune(m.apiCalls, now, m.window)
	m.rateLimits = prune(m.rateLimits, now, m.window)

	return domain.PollingMetrics{
		DocsTracked:             m.docsTracked,
		CyclesCompleted:         m.cyclesCompleted,
		LastPollStartedAt:       m.lastPollStartedAt,
		LastPollDuration:        m.lastPollDuration,
		OperationsLastHour:      len(m.operations),
		ErrorsLastHour:          len(m.errors),
		NotificationsLastHour:   len(m.notifications),
		APICallsLastHour:        len(m.apiCalls),
		RateLimitErrorsLastHour: len(m.rateLimits),
		SuccessRate:             m.successRate,
	}
}

// prune drops timestamps older than window relative to now.
// It stops at the first event inside the window.
func prune(events []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return events
	}
	return append(events[:0], events[i:]...)
}
