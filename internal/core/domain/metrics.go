package domain

import "time"

// HealthStatus is the derived poller health.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health thresholds over the rolling window.
const (
	UnhealthyErrorRate      = 0.5
	DegradedErrorRate       = 0.2
	DegradedRateLimitErrors = 5
	MetricsWindow           = time.Hour
)

// PollingMetrics is a point-in-time snapshot of poller counters.
// It is not persisted and resets when the process restarts.
type PollingMetrics struct {
	DocsTracked       int
	CyclesCompleted   int
	LastPollStartedAt time.Time
	LastPollDuration  time.Duration

	// Rolling counts over MetricsWindow. An operation is one tracked
	// document attempted or one failed listing of the tracked set; errors
	// count the failed operations.
	OperationsLastHour      int
	ErrorsLastHour          int
	NotificationsLastHour   int
	APICallsLastHour        int
	RateLimitErrorsLastHour int

	// SuccessRate is successfulDocs / totalDocs for the last completed cycle.
	// A failed listing counts as one unsuccessful unit of its cycle.
	SuccessRate float64
}

// ErrorRate returns failed operations per attempted operation over the
// rolling window.
func (m PollingMetrics) ErrorRate() float64 {
	if m.OperationsLastHour == 0 {
		if m.ErrorsLastHour > 0 {
			return 1
		}
		return 0
	}
	return float64(m.ErrorsLastHour) / float64(m.OperationsLastHour)
}

// Health derives the status from the metrics snapshot.
func (m PollingMetrics) Health() HealthStatus {
	rate := m.ErrorRate()
	switch {
	case rate > UnhealthyErrorRate:
		return HealthUnhealthy
	case rate >= DegradedErrorRate, m.RateLimitErrorsLastHour > DegradedRateLimitErrors:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
