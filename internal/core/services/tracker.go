package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// Ensure TrackerService implements the interface.
var _ driving.TrackerService = (*TrackerService)(nil)

// defaultHistoryLimit caps History when the caller passes no limit.
const defaultHistoryLimit = 20

// TrackerService implements the command surface on top of the store
// and the poller.
type TrackerService struct {
	store  driven.TrackingStore
	poller *Poller
}

// NewTrackerService creates a tracker service.
func NewTrackerService(store driven.TrackingStore, poller *Poller) *TrackerService {
	return &TrackerService{
		store:  store,
		poller: poller,
	}
}

// Watch validates the reference, fetches current metadata and starts
// tracking. A newly created or reactivated row has its first observation
// recorded immediately. Watching an already active row is a no-op.
func (s *TrackerService) Watch(
	ctx context.Context, tenant domain.TenantID, req driving.WatchRequest,
) (*domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	startReq := domain.StartTrackingRequest{
		DocID:       req.DocID,
		DocType:     req.DocType,
		Destination: req.Destination,
		OwnerUserID: req.OwnerUserID,
	}
	if err := startReq.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.findActive(ctx, tenant, req.DocID, req.Destination)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info("watch %s -> %s: already tracked", req.DocID, req.Destination)
		return existing, nil
	}

	md, err := s.poller.Fetcher().Fetch(ctx, req.DocID, req.DocType, false)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	startReq.Initial = md

	doc, err := s.store.StartTracking(ctx, tenant, startReq)
	if err != nil {
		return nil, fmt.Errorf("start tracking: %w", err)
	}

	res := s.poller.ObserveFirst(ctx, *doc, *md)
	if res.Error != "" {
		logger.Warn("watch %s -> %s: first observation: %s", req.DocID, req.Destination, res.Error)
	}

	// Reload so the caller sees the state written by the first observation.
	if reloaded, err := s.store.GetTracked(ctx, tenant, doc.ID); err == nil {
		doc = reloaded
	}
	return doc, nil
}

// Unwatch deactivates tracking for a document.
func (s *TrackerService) Unwatch(ctx context.Context, tenant domain.TenantID, docID, destination string) (int, error) {
	if docID == "" {
		return 0, fmt.Errorf("%w: doc id is required", domain.ErrInvalidInput)
	}
	n, err := s.store.StopTracking(ctx, tenant, docID, destination)
	if err != nil {
		return 0, fmt.Errorf("stop tracking: %w", err)
	}
	s.poller.Fetcher().Invalidate(docID)
	return n, nil
}

// Check evaluates a document immediately.
func (s *TrackerService) Check(ctx context.Context, tenant domain.TenantID, docID string) ([]driving.CheckResult, error) {
	return s.poller.CheckDocument(ctx, tenant, docID)
}

// List returns the tenant's watched documents.
func (s *TrackerService) List(
	ctx context.Context, tenant domain.TenantID, includeInactive bool,
) ([]domain.TrackedDocument, error) {
	return s.store.ListTracked(ctx, tenant, !includeInactive)
}

// History returns recent audit records for a document.
func (s *TrackerService) History(
	ctx context.Context, tenant domain.TenantID, docID string, limit int,
) ([]domain.ChangeAuditRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.GetChangeHistory(ctx, tenant, docID, limit)
}

// Stats aggregates the audit trail for a document.
func (s *TrackerService) Stats(ctx context.Context, tenant domain.TenantID, docID string) (*domain.ChangeStats, error) {
	return s.store.GetChangeStats(ctx, tenant, docID)
}

// Status returns the poller health snapshot.
func (s *TrackerService) Status(_ context.Context) (*driving.Status, error) {
	m := s.poller.Metrics()
	return &driving.Status{
		Health:  m.Health(),
		Metrics: m,
	}, nil
}

// findActive returns the active row for (docID, destination), or nil.
func (s *TrackerService) findActive(
	ctx context.Context, tenant domain.TenantID, docID, destination string,
) (*domain.TrackedDocument, error) {
	tracked, err := s.store.ListTracked(ctx, tenant, true)
	if err != nil {
		return nil, fmt.Errorf("list tracked: %w", err)
	}
	for i := range tracked {
		if tracked[i].DocID == docID && tracked[i].NotifyDestination == destination {
			return &tracked[i], nil
		}
	}
	return nil, nil
}
