package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure TrackingStore implements the interface.
var _ driven.TrackingStore = (*TrackingStore)(nil)

// TrackingStore is an in-memory implementation of driven.TrackingStore.
type TrackingStore struct {
	mu      sync.RWMutex
	docs    map[string]domain.TrackedDocument // keyed by row ID
	changes []domain.ChangeAuditRecord
	now     func() time.Time
}

// NewTrackingStore creates a new in-memory tracking store.
func NewTrackingStore() *TrackingStore {
	return &TrackingStore{
		docs: make(map[string]domain.TrackedDocument),
		now:  time.Now,
	}
}

// StartTracking inserts or reactivates a row.
func (s *TrackingStore) StartTracking(
	_ context.Context, tenant domain.TenantID, req domain.StartTrackingRequest,
) (*domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for id, doc := range s.docs {
		if doc.Tenant == tenant && doc.DocID == req.DocID && doc.NotifyDestination == req.Destination {
			doc.Active = true
			doc.DocType = req.DocType
			if req.OwnerUserID != "" {
				doc.OwnerUserID = req.OwnerUserID
			}
			applyInitial(&doc, req.Initial)
			doc.UpdatedAt = now
			s.docs[id] = doc
			return &doc, nil
		}
	}

	doc := domain.TrackedDocument{
		ID:                uuid.New().String(),
		Tenant:            tenant,
		DocID:             req.DocID,
		DocType:           req.DocType,
		NotifyDestination: req.Destination,
		OwnerUserID:       req.OwnerUserID,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	applyInitial(&doc, req.Initial)
	s.docs[doc.ID] = doc
	return &doc, nil
}

// StopTracking deactivates matching rows.
func (s *TrackingStore) StopTracking(
	_ context.Context, tenant domain.TenantID, docID, destination string,
) (int, error) {
	if err := tenant.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, doc := range s.docs {
		if doc.Tenant != tenant || doc.DocID != docID || !doc.Active {
			continue
		}
		if destination != "" && doc.NotifyDestination != destination {
			continue
		}
		doc.Active = false
		doc.UpdatedAt = s.now().UTC()
		s.docs[id] = doc
		n++
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}
	return n, nil
}

// ListTracked returns the tenant's rows ordered by creation time.
func (s *TrackingStore) ListTracked(
	_ context.Context, tenant domain.TenantID, activeOnly bool,
) ([]domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TrackedDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.Tenant != tenant || (activeOnly && !doc.Active) {
			continue
		}
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// GetTracked retrieves a row by ID.
func (s *TrackingStore) GetTracked(_ context.Context, tenant domain.TenantID, id string) (*domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok || doc.Tenant != tenant {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListTenants returns tenants with at least one active row.
func (s *TrackingStore) ListTenants(_ context.Context) ([]domain.TenantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.TenantID]bool)
	for _, doc := range s.docs {
		if doc.Active {
			seen[doc.Tenant] = true
		}
	}
	tenants := make([]domain.TenantID, 0, len(seen))
	for t := range seen {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })
	return tenants, nil
}

// RecordChange appends an audit record.
func (s *TrackingStore) RecordChange(_ context.Context, tenant domain.TenantID, record domain.ChangeAuditRecord) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Tenant = tenant
	s.changes = append(s.changes, record)
	return nil
}

// UpdateLastKnownState stores the latest observed state.
func (s *TrackingStore) UpdateLastKnownState(
	_ context.Context, tenant domain.TenantID, id, modifier string, modifiedAt, checkedAt time.Time,
) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.Tenant != tenant {
		return domain.ErrNotFound
	}
	doc.LastKnownModifier = modifier
	doc.LastKnownModifiedAt = domain.NormaliseTimestamp(modifiedAt)
	doc.LastCheckedAt = checkedAt.UTC()
	doc.UpdatedAt = s.now().UTC()
	s.docs[id] = doc
	return nil
}

// UpdateLastNotificationTime advances the notification time, never rewinding it.
func (s *TrackingStore) UpdateLastNotificationTime(
	_ context.Context, tenant domain.TenantID, id string, ts time.Time,
) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.Tenant != tenant {
		return domain.ErrNotFound
	}
	if ts.After(doc.LastNotificationAt) {
		doc.LastNotificationAt = ts.UTC()
		doc.UpdatedAt = s.now().UTC()
		s.docs[id] = doc
	}
	return nil
}

// GetChangeHistory returns records for docID, most recent first.
func (s *TrackingStore) GetChangeHistory(
	_ context.Context, tenant domain.TenantID, docID string, limit int,
) ([]domain.ChangeAuditRecord, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ChangeAuditRecord
	for i := len(s.changes) - 1; i >= 0; i-- {
		rec := s.changes[i]
		if rec.Tenant != tenant || rec.DocID != docID {
			continue
		}
		result = append(result, rec)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// GetChangeStats aggregates records for docID.
func (s *TrackingStore) GetChangeStats(
	_ context.Context, tenant domain.TenantID, docID string,
) (*domain.ChangeStats, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.ChangeStats{DocID: docID, ByType: make(map[domain.ChangeType]int)}
	modifiers := make(map[string]bool)
	for _, rec := range s.changes {
		if rec.Tenant != tenant || rec.DocID != docID {
			continue
		}
		stats.TotalChanges++
		stats.ByType[rec.ChangeType]++
		if rec.Debounced {
			stats.Debounced++
		}
		if rec.NotificationSent {
			stats.NotificationsSent++
		}
		if rec.NotificationError != "" {
			stats.NotifyFailures++
		}
		if rec.NewModifier != "" {
			modifiers[rec.NewModifier] = true
		}
		if stats.FirstDetectedAt.IsZero() || rec.DetectedAt.Before(stats.FirstDetectedAt) {
			stats.FirstDetectedAt = rec.DetectedAt
		}
		if rec.DetectedAt.After(stats.LastDetectedAt) {
			stats.LastDetectedAt = rec.DetectedAt
		}
	}
	stats.DistinctModifiers = len(modifiers)
	return stats, nil
}

// applyInitial copies initial metadata onto a row.
func applyInitial(doc *domain.TrackedDocument, md *domain.DocumentMetadata) {
	if md == nil {
		return
	}
	doc.Title = md.Title
	if doc.OwnerUserID == "" {
		doc.OwnerUserID = md.OwnerID
	}
	doc.LastKnownModifier = md.LastModifiedBy
	doc.LastKnownModifiedAt = domain.NormaliseTimestamp(md.LastModifiedAt)
}
