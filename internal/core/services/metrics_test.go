package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics().Snapshot(testBase)

	assert.Zero(t, m.CyclesCompleted)
	assert.Equal(t, 1.0, m.SuccessRate)
	assert.Equal(t, domain.HealthHealthy, m.Health())
}

func TestMetrics_RollingWindow(t *testing.T) {
	m := NewMetrics()
	m.RecordAPICall(at(0), false)
	m.RecordAPICall(at(10*time.Minute), true)
	m.RecordRateLimited(at(20 * time.Minute))
	m.RecordOperation(at(0), true)
	m.RecordOperation(at(10*time.Minute), false)
	m.RecordOperation(at(30*time.Minute), true)
	m.RecordNotification(at(45 * time.Minute))

	snap := m.Snapshot(at(50 * time.Minute))
	assert.Equal(t, 2, snap.APICallsLastHour)
	assert.Equal(t, 2, snap.RateLimitErrorsLastHour)
	assert.Equal(t, 3, snap.OperationsLastHour)
	assert.Equal(t, 2, snap.ErrorsLastHour)
	assert.Equal(t, 1, snap.NotificationsLastHour)

	// Exactly one window after the first events, they drop out.
	snap = m.Snapshot(at(time.Hour))
	assert.Equal(t, 1, snap.APICallsLastHour)
	assert.Equal(t, 2, snap.OperationsLastHour)
	assert.Equal(t, 1, snap.ErrorsLastHour)

	snap = m.Snapshot(at(2 * time.Hour))
	assert.Zero(t, snap.APICallsLastHour)
	assert.Zero(t, snap.RateLimitErrorsLastHour)
	assert.Zero(t, snap.OperationsLastHour)
	assert.Zero(t, snap.ErrorsLastHour)
	assert.Zero(t, snap.NotificationsLastHour)
}

func TestMetrics_RecordCycle(t *testing.T) {
	m := NewMetrics()

	m.RecordCycle(at(0), 2*time.Second, 4, 3, 0)
	snap := m.Snapshot(at(time.Minute))
	assert.Equal(t, 1, snap.CyclesCompleted)
	assert.Equal(t, 4, snap.DocsTracked)
	assert.Equal(t, at(0), snap.LastPollStartedAt)
	assert.Equal(t, 2*time.Second, snap.LastPollDuration)
	assert.InDelta(t, 0.75, snap.SuccessRate, 0.0001)

	m.RecordCycle(at(5*time.Minute), time.Second, 0, 0, 0)
	snap = m.Snapshot(at(6 * time.Minute))
	assert.Equal(t, 2, snap.CyclesCompleted)
	assert.Equal(t, 1.0, snap.SuccessRate, "an empty cycle counts as fully successful")

	m.RecordCycle(at(10*time.Minute), time.Second, 0, 0, 1)
	snap = m.Snapshot(at(11 * time.Minute))
	assert.Zero(t, snap.SuccessRate, "a failed listing is not an empty cycle")

	m.RecordCycle(at(15*time.Minute), time.Second, 3, 3, 1)
	snap = m.Snapshot(at(16 * time.Minute))
	assert.InDelta(t, 0.75, snap.SuccessRate, 0.0001)
}

func TestMetrics_Health(t *testing.T) {
	tests := []struct {
		name       string
		operations int
		failed     int
		rateLimits int
		want       domain.HealthStatus
	}{
		{name: "no traffic", want: domain.HealthHealthy},
		{name: "low error rate", operations: 10, failed: 1, want: domain.HealthHealthy},
		{name: "degraded error rate", operations: 10, failed: 2, want: domain.HealthDegraded},
		{name: "many rate limits", operations: 10, rateLimits: 6, want: domain.HealthDegraded},
		{name: "unhealthy error rate", operations: 10, failed: 6, want: domain.HealthUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			for i := 0; i < tt.operations; i++ {
				m.RecordOperation(at(time.Duration(i)*time.Second), i < tt.failed)
			}
			for i := 0; i < tt.rateLimits; i++ {
				m.RecordAPICall(at(time.Duration(i)*time.Second), true)
			}

			assert.Equal(t, tt.want, m.Snapshot(at(time.Minute)).Health())
		})
	}
}
