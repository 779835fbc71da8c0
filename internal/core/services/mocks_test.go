package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// testBase is the reference instant used across the services tests.
var testBase = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// at returns testBase plus d.
func at(d time.Duration) time.Time {
	return testBase.Add(d)
}

// fakeProvider implements driven.MetadataProvider for testing.
type fakeProvider struct {
	mu       sync.Mutex
	metadata map[string]*domain.RemoteMetadata
	errs     map[string][]error // consumed in order, one per call
	calls    map[string]int

	// onFetch runs before the response is returned.
	onFetch func(docID string)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		metadata: make(map[string]*domain.RemoteMetadata),
		errs:     make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// set stores the metadata returned for docID.
func (p *fakeProvider) set(docID, modifier string, modifiedAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata[docID] = &domain.RemoteMetadata{
		ID:                docID,
		Name:              "Doc " + docID,
		MimeType:          "application/vnd.google-apps.document",
		OwnerID:           "owner@example.com",
		CreatedTime:       testBase.Add(-24 * time.Hour).Format(time.RFC3339),
		ModifiedTime:      modifiedAt.Format(time.RFC3339Nano),
		LastModifyingUser: modifier,
		WebViewLink:       "https://docs.google.com/document/d/" + docID + "/edit",
	}
}

// failWith queues errors returned by the next calls for docID.
func (p *fakeProvider) failWith(docID string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[docID] = append(p.errs[docID], errs...)
}

func (p *fakeProvider) callCount(docID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[docID]
}

func (p *fakeProvider) FetchRemoteMetadata(
	_ context.Context, docID string, _ domain.DocType,
) (*domain.RemoteMetadata, error) {
	p.mu.Lock()
	p.calls[docID]++
	hook := p.onFetch
	var err error
	if queued := p.errs[docID]; len(queued) > 0 {
		err = queued[0]
		p.errs[docID] = queued[1:]
	}
	md, ok := p.metadata[docID]
	p.mu.Unlock()

	if hook != nil {
		hook(docID)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, docID)
	}
	copied := *md
	return &copied, nil
}

// sentMessage is one captured Notify call.
type sentMessage struct {
	destination string
	msg         driven.Message
}

// fakeNotifier implements driven.Notifier for testing.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, destination string, msg driven.Message) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, sentMessage{destination: destination, msg: msg})
	return fmt.Sprintf("msg-%d", len(n.sent)), nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.TrackingStore

	listTenantsErr error
	// writeErrs fails RecordChange and UpdateLastKnownState per doc ID.
	writeErrs map[string]error
}

func newFaultyStore(inner *memory.TrackingStore) *faultyStore {
	return &faultyStore{TrackingStore: inner, writeErrs: make(map[string]error)}
}

func (s *faultyStore) ListTenants(ctx context.Context) ([]domain.TenantID, error) {
	if s.listTenantsErr != nil {
		return nil, s.listTenantsErr
	}
	return s.TrackingStore.ListTenants(ctx)
}

func (s *faultyStore) RecordChange(ctx context.Context, tenant domain.TenantID, record domain.ChangeAuditRecord) error {
	if err := s.writeErrs[record.DocID]; err != nil {
		return err
	}
	return s.TrackingStore.RecordChange(ctx, tenant, record)
}

func (s *faultyStore) UpdateLastKnownState(
	ctx context.Context, tenant domain.TenantID, id, modifier string, modifiedAt, checkedAt time.Time,
) error {
	doc, err := s.TrackingStore.GetTracked(ctx, tenant, id)
	if err != nil {
		return err
	}
	if err := s.writeErrs[doc.DocID]; err != nil {
		return err
	}
	return s.TrackingStore.UpdateLastKnownState(ctx, tenant, id, modifier, modifiedAt, checkedAt)
}

// testPollerConfig disables caching and keeps retries short.
func testPollerConfig() domain.PollerConfig {
	cfg := domain.DefaultPollerConfig()
	cfg.Interval = time.Minute
	cfg.DebounceWindow = 5 * time.Second
	cfg.CacheTTL = 0
	return cfg
}

// noSleep replaces the fetcher's retry wait.
func noSleep(context.Context, time.Duration) error {
	return nil
}
