package mcp

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

// mockTrackerService is a mock implementation of driving.TrackerService.
type mockTrackerService struct {
	doc     *domain.TrackedDocument
	docs    []domain.TrackedDocument
	results []driving.CheckResult
	records []domain.ChangeAuditRecord
	stats   *domain.ChangeStats
	status  *driving.Status
	stopped int
	err     error

	// Captured arguments.
	tenant      domain.TenantID
	watchReq    driving.WatchRequest
	docID       string
	destination string
	limit       int
	inactive    bool
}

func (m *mockTrackerService) Watch(
	_ context.Context,
	tenant domain.TenantID,
	req driving.WatchRequest,
) (*domain.TrackedDocument, error) {
	m.tenant, m.watchReq = tenant, req
	return m.doc, m.err
}

func (m *mockTrackerService) Unwatch(_ context.Context, tenant domain.TenantID, docID, destination string) (int, error) {
	m.tenant, m.docID, m.destination = tenant, docID, destination
	return m.stopped, m.err
}

func (m *mockTrackerService) Check(
	_ context.Context,
	tenant domain.TenantID,
	docID string,
) ([]driving.CheckResult, error) {
	m.tenant, m.docID = tenant, docID
	return m.results, m.err
}

func (m *mockTrackerService) List(
	_ context.Context,
	tenant domain.TenantID,
	includeInactive bool,
) ([]domain.TrackedDocument, error) {
	m.tenant, m.inactive = tenant, includeInactive
	return m.docs, m.err
}

func (m *mockTrackerService) History(
	_ context.Context,
	tenant domain.TenantID,
	docID string,
	limit int,
) ([]domain.ChangeAuditRecord, error) {
	m.tenant, m.docID, m.limit = tenant, docID, limit
	return m.records, m.err
}

func (m *mockTrackerService) Stats(_ context.Context, tenant domain.TenantID, docID string) (*domain.ChangeStats, error) {
	m.tenant, m.docID = tenant, docID
	return m.stats, m.err
}

func (m *mockTrackerService) Status(_ context.Context) (*driving.Status, error) {
	return m.status, m.err
}

// Verify interface compliance.
var _ driving.TrackerService = (*mockTrackerService)(nil)
