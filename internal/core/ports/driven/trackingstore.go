package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// TrackingStore persists tracked documents and the change audit trail.
// Every call takes an explicit tenant and fails with domain.ErrTenantRequired
// when it is empty; there is no unscoped access.
type TrackingStore interface {
	// StartTracking inserts a row or reactivates the existing row for
	// (tenant, docID, destination). It is idempotent.
	StartTracking(ctx context.Context, tenant domain.TenantID, req domain.StartTrackingRequest) (*domain.TrackedDocument, error)

	// StopTracking deactivates rows for docID. An empty destination matches
	// every destination. Rows are never deleted. Returns the number of rows
	// deactivated, or domain.ErrNotFound when nothing matched.
	StopTracking(ctx context.Context, tenant domain.TenantID, docID, destination string) (int, error)

	// ListTracked returns the tenant's tracked documents.
	ListTracked(ctx context.Context, tenant domain.TenantID, activeOnly bool) ([]domain.TrackedDocument, error)

	// GetTracked retrieves a row by ID. Returns domain.ErrNotFound if missing.
	GetTracked(ctx context.Context, tenant domain.TenantID, id string) (*domain.TrackedDocument, error)

	// ListTenants returns tenants with at least one active row.
	ListTenants(ctx context.Context) ([]domain.TenantID, error)

	// RecordChange appends one audit record. Records are never updated.
	RecordChange(ctx context.Context, tenant domain.TenantID, record domain.ChangeAuditRecord) error

	// UpdateLastKnownState stores the latest observed modifier and timestamp.
	UpdateLastKnownState(
		ctx context.Context, tenant domain.TenantID, id, modifier string, modifiedAt, checkedAt time.Time,
	) error

	// UpdateLastNotificationTime advances last_notification_at. Older
	// timestamps are ignored so the value never moves backwards.
	UpdateLastNotificationTime(ctx context.Context, tenant domain.TenantID, id string, ts time.Time) error

	// GetChangeHistory returns audit records for docID, most recent first.
	GetChangeHistory(ctx context.Context, tenant domain.TenantID, docID string, limit int) ([]domain.ChangeAuditRecord, error)

	// GetChangeStats aggregates the audit trail for docID.
	GetChangeStats(ctx context.Context, tenant domain.TenantID, docID string) (*domain.ChangeStats, error)
}
