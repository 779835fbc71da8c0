package driving

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// TrackerService implements the watch/unwatch/check/list/status intents
// issued by the command surface. Doc reference resolution (URL to doc ID
// and type) happens before these calls.
type TrackerService interface {
	// Watch starts tracking a document for a destination.
	Watch(ctx context.Context, tenant domain.TenantID, req WatchRequest) (*domain.TrackedDocument, error)

	// Unwatch stops tracking a document. An empty destination stops all.
	Unwatch(ctx context.Context, tenant domain.TenantID, docID, destination string) (int, error)

	// Check evaluates tracked rows for docID immediately, bypassing the cache.
	Check(ctx context.Context, tenant domain.TenantID, docID string) ([]CheckResult, error)

	// List returns watched documents.
	List(ctx context.Context, tenant domain.TenantID, includeInactive bool) ([]domain.TrackedDocument, error)

	// History returns recent audit records for a document.
	History(ctx context.Context, tenant domain.TenantID, docID string, limit int) ([]domain.ChangeAuditRecord, error)

	// Stats aggregates the audit trail for a document.
	Stats(ctx context.Context, tenant domain.TenantID, docID string) (*domain.ChangeStats, error)

	// Status returns the poller health snapshot.
	Status(ctx context.Context) (*Status, error)
}

// WatchRequest is the input for Watch.
type WatchRequest struct {
	DocID       string
	DocType     domain.DocType
	Destination string
	OwnerUserID string
}

// CheckResult is the outcome of a manual check for one tracked row.
type CheckResult struct {
	TrackedID   string
	Destination string
	Detection   domain.ChangeDetectionResult

	NotificationSent bool
	NotificationRef  string

	// Error is set when any step failed for this row.
	Error string
}

// Status is the health snapshot exposed to monitors.
type Status struct {
	Health  domain.HealthStatus
	Metrics domain.PollingMetrics
}
