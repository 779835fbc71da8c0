package cli

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

const testDocID = "1AbCdEfGhIjKlMnOpQ"

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

	tenant      domain.TenantID
	watchReq    driving.WatchRequest
	docID       string
	destination string
	limit       int
	inactive    bool
}

func (m *mockTrackerService) Watch(
	_ context.Context, tenant domain.TenantID, req driving.WatchRequest,
) (*domain.TrackedDocument, error) {
	m.tenant, m.watchReq = tenant, req
	return m.doc, m.err
}

func (m *mockTrackerService) Unwatch(_ context.Context, tenant domain.TenantID, docID, destination string) (int, error) {
	m.tenant, m.docID, m.destination = tenant, docID, destination
	return m.stopped, m.err
}

func (m *mockTrackerService) Check(
	_ context.Context, tenant domain.TenantID, docID string,
) ([]driving.CheckResult, error) {
	m.tenant, m.docID = tenant, docID
	return m.results, m.err
}

func (m *mockTrackerService) List(
	_ context.Context, tenant domain.TenantID, includeInactive bool,
) ([]domain.TrackedDocument, error) {
	m.tenant, m.inactive = tenant, includeInactive
	return m.docs, m.err
}

func (m *mockTrackerService) History(
	_ context.Context, tenant domain.TenantID, docID string, limit int,
) ([]domain.ChangeAuditRecord, error) {
	m.tenant, m.docID, m.limit = tenant, docID, limit
	return m.records, m.err
}

func (m *mockTrackerService) Stats(_ context.Context, tenant domain.TenantID, docID string) (*domain.ChangeStats, error) {
	m.tenant, m.docID = tenant, docID
	return m.stats, m.err
}

func (m *mockTrackerService) Status(_ context.Context) (*driving.Status, error) {
	if m.status == nil {
		return &driving.Status{Health: domain.HealthHealthy}, m.err
	}
	return m.status, m.err
}

// mockPoller is a mock implementation of driving.Poller.
type mockPoller struct {
	started chan struct{}
	stopped bool
	updates []domain.PollerConfig
}

func (m *mockPoller) Start(ctx context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockPoller) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockPoller) UpdateConfig(cfg domain.PollerConfig) error {
	m.updates = append(m.updates, cfg)
	return nil
}

func (m *mockPoller) Metrics() domain.PollingMetrics {
	return domain.PollingMetrics{}
}

// setupTestServices installs mock services and returns a cleanup func.
func setupTestServices(tracker *mockTrackerService) func() {
	old := Services{
		Tracker:     trackerService,
		Poller:      pollerService,
		Config:      configStore,
		ResolveRef:  resolveRef,
		WatchConfig: watchConfig,
		Authorize:   authorize,
		Close:       closeServices,
	}
	oldBootstrap := bootstrap

	svc := &Services{Poller: &mockPoller{}}
	if tracker != nil {
		svc.Tracker = tracker
	}
	useServices(svc)
	bootstrap = nil

	return func() {
		useServices(&old)
		bootstrap = oldBootstrap
		tenantFlag = ""
	}
}

var (
	_ driving.TrackerService = (*mockTrackerService)(nil)
	_ driving.Poller         = (*mockPoller)(nil)
)
