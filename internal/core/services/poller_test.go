package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

const (
	testTenant = domain.TenantID("acme")
	docD1      = "D1aaaaaaaaaaaaaaaa"
	docD2      = "D2bbbbbbbbbbbbbbbb"
	destTeam   = "mailto:team@example.com"
)

type pollerFixture struct {
	poller   *Poller
	store    *memory.TrackingStore
	provider *fakeProvider
	notifier *fakeNotifier
	clock    *testclock.Clock
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()
	fx := &pollerFixture{
		store:    memory.NewTrackingStore(),
		provider: newFakeProvider(),
		notifier: &fakeNotifier{},
		clock:    testclock.NewClock(testBase),
	}
	fx.poller = NewPoller(testPollerConfig(), fx.store, fx.provider, fx.notifier, fx.clock, nil)
	fx.poller.fetcher.sleep = noSleep
	return fx
}

// useStore rebuilds the poller over store, keeping the other collaborators.
func (fx *pollerFixture) useStore(store driven.TrackingStore) {
	fx.poller = NewPoller(testPollerConfig(), store, fx.provider, fx.notifier, fx.clock, nil)
	fx.poller.fetcher.sleep = noSleep
}

// track starts tracking docID with a known last state.
func (fx *pollerFixture) track(t *testing.T, docID, modifier string, modifiedAt time.Time) *domain.TrackedDocument {
	t.Helper()
	doc, err := fx.store.StartTracking(context.Background(), testTenant, domain.StartTrackingRequest{
		DocID:       docID,
		DocType:     domain.DocTypeDocument,
		Destination: destTeam,
		Initial: &domain.DocumentMetadata{
			DocID:          docID,
			Title:          "Doc " + docID,
			LastModifiedBy: modifier,
			LastModifiedAt: modifiedAt,
			DocType:        domain.DocTypeDocument,
		},
	})
	require.NoError(t, err)
	return doc
}

// advanceTo moves the test clock to testBase+d.
func (fx *pollerFixture) advanceTo(d time.Duration) {
	fx.clock.Advance(at(d).Sub(fx.clock.Now()))
}

func (fx *pollerFixture) reload(t *testing.T, id string) *domain.TrackedDocument {
	t.Helper()
	doc, err := fx.store.GetTracked(context.Background(), testTenant, id)
	require.NoError(t, err)
	return doc
}

func (fx *pollerFixture) history(t *testing.T, docID string) []domain.ChangeAuditRecord {
	t.Helper()
	records, err := fx.store.GetChangeHistory(context.Background(), testTenant, docID, 0)
	require.NoError(t, err)
	return records
}

func TestPoller_RunCycle_DebounceScenario(t *testing.T) {
	fx := newPollerFixture(t)
	ctx := context.Background()
	doc := fx.track(t, docD1, "alice", at(time.Second))

	// Edit by bob, observed once the clock is well past the window.
	fx.provider.set(docD1, "bob", at(2*time.Second))
	fx.advanceTo(10 * time.Second)
	report := fx.poller.RunCycle(ctx)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Changes)
	assert.Equal(t, 1, report.Notifications)
	require.Equal(t, 1, fx.notifier.count())
	assert.Equal(t, destTeam, fx.notifier.sent[0].destination)

	row := fx.reload(t, doc.ID)
	assert.Equal(t, at(10*time.Second), row.LastNotificationAt)
	assert.Equal(t, "bob", row.LastKnownModifier)
	assert.Equal(t, at(2*time.Second), row.LastKnownModifiedAt)

	records := fx.history(t, docD1)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChangeTypeTimeUpdated, records[0].ChangeType)
	assert.False(t, records[0].Debounced)
	assert.True(t, records[0].NotificationSent)
	assert.Equal(t, "msg-1", records[0].NotificationRef)
	assert.Equal(t, "alice", records[0].PreviousModifier)
	assert.Equal(t, "bob", records[0].NewModifier)

	// Second edit two seconds after the notification is debounced.
	fx.provider.set(docD1, "bob", at(3*time.Second))
	fx.advanceTo(12 * time.Second)
	report = fx.poller.RunCycle(ctx)

	assert.Equal(t, 1, report.Changes)
	assert.Zero(t, report.Notifications)
	assert.Equal(t, 1, fx.notifier.count())

	row = fx.reload(t, doc.ID)
	assert.Equal(t, at(10*time.Second), row.LastNotificationAt, "debounced change must not advance notification time")
	assert.Equal(t, at(3*time.Second), row.LastKnownModifiedAt)

	records = fx.history(t, docD1)
	require.Len(t, records, 2)
	assert.True(t, records[0].Debounced)
	assert.False(t, records[0].NotificationSent)
	assert.Empty(t, records[0].NotificationRef)

	// Once the window has elapsed the next change notifies again.
	fx.provider.set(docD1, "carol", at(4*time.Second))
	fx.advanceTo(15 * time.Second)
	report = fx.poller.RunCycle(ctx)

	assert.Equal(t, 1, report.Notifications)
	assert.Equal(t, 2, fx.notifier.count())
	assert.Equal(t, at(15*time.Second), fx.reload(t, doc.ID).LastNotificationAt)
}

func TestPoller_RunCycle_NoChangeStillRefreshesState(t *testing.T) {
	fx := newPollerFixture(t)
	doc := fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "alice", at(time.Second))
	fx.advanceTo(time.Minute)

	report := fx.poller.RunCycle(context.Background())

	assert.Zero(t, report.Changes)
	assert.Equal(t, 1, report.Succeeded)
	assert.Empty(t, fx.history(t, docD1))
	assert.Zero(t, fx.notifier.count())
	assert.Equal(t, at(time.Minute), fx.reload(t, doc.ID).LastCheckedAt)
}

func TestPoller_RunCycle_UserChangedOnly(t *testing.T) {
	fx := newPollerFixture(t)
	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(time.Second))

	fx.poller.RunCycle(context.Background())

	records := fx.history(t, docD1)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChangeTypeUserChanged, records[0].ChangeType)
}

func TestPoller_RunCycle_PartialFailureIsolation(t *testing.T) {
	fx := newPollerFixture(t)
	fx.track(t, docD1, "alice", at(time.Second))
	good := fx.track(t, docD2, "alice", at(time.Second))
	fx.provider.failWith(docD1, fmt.Errorf("%w: deleted", domain.ErrNotFound))
	fx.provider.set(docD2, "bob", at(2*time.Second))

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Notifications)
	assert.Empty(t, fx.history(t, docD1))
	assert.Len(t, fx.history(t, docD2), 1)
	assert.Equal(t, "bob", fx.reload(t, good.ID).LastKnownModifier)

	m := fx.poller.Metrics()
	assert.Equal(t, 1, m.ErrorsLastHour)
	assert.Equal(t, 2, m.OperationsLastHour)
	assert.Equal(t, 1, m.CyclesCompleted)
	assert.Equal(t, 2, m.DocsTracked)
	assert.InDelta(t, 0.5, m.SuccessRate, 0.0001)
}

func TestPoller_RunCycle_ProviderOutageIsUnhealthy(t *testing.T) {
	fx := newPollerFixture(t)
	fx.track(t, docD1, "alice", at(time.Second))
	fx.track(t, docD2, "alice", at(time.Second))
	backendErr := errors.New("503 backend error")
	for _, id := range []string{docD1, docD2} {
		fx.provider.set(id, "bob", at(2*time.Second))
		fx.provider.failWith(id, backendErr, backendErr, backendErr)
	}

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, 2, report.Failed)
	m := fx.poller.Metrics()
	assert.Equal(t, 6, m.APICallsLastHour)
	assert.Equal(t, 2, m.OperationsLastHour)
	assert.Equal(t, 2, m.ErrorsLastHour)
	assert.Equal(t, 1.0, m.ErrorRate())
	assert.Equal(t, domain.HealthUnhealthy, m.Health())
}

func TestPoller_RunCycle_StoreListingFailure(t *testing.T) {
	fx := newPollerFixture(t)
	fx.track(t, docD1, "alice", at(time.Second))
	store := newFaultyStore(fx.store)
	store.listTenantsErr = errors.New("database is locked")
	fx.useStore(store)

	for i := 0; i < 5; i++ {
		report := fx.poller.RunCycle(context.Background())
		assert.Zero(t, report.Total)
		assert.Equal(t, 1, report.FailedListings)
	}

	m := fx.poller.Metrics()
	assert.Zero(t, m.APICallsLastHour)
	assert.Equal(t, 5, m.ErrorsLastHour)
	assert.Equal(t, 5, m.OperationsLastHour)
	assert.Zero(t, m.SuccessRate)
	assert.Equal(t, domain.HealthUnhealthy, m.Health())
	assert.Zero(t, fx.provider.callCount(docD1))
}

func TestPoller_RunCycle_PersistenceFailureIsolation(t *testing.T) {
	fx := newPollerFixture(t)
	broken := fx.track(t, docD1, "alice", at(time.Second))
	good := fx.track(t, docD2, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(2*time.Second))
	fx.provider.set(docD2, "bob", at(2*time.Second))

	store := newFaultyStore(fx.store)
	store.writeErrs[docD1] = errors.New("disk I/O error")
	fx.useStore(store)

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)

	assert.Empty(t, fx.history(t, docD1))
	assert.Equal(t, "alice", fx.reload(t, broken.ID).LastKnownModifier)

	records := fx.history(t, docD2)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChangeTypeTimeUpdated, records[0].ChangeType)
	assert.True(t, records[0].NotificationSent)
	row := fx.reload(t, good.ID)
	assert.Equal(t, "bob", row.LastKnownModifier)
	assert.Equal(t, at(2*time.Second), row.LastKnownModifiedAt)
	assert.Equal(t, testBase, row.LastNotificationAt)

	// D1 was notified before its insert failed.
	assert.Equal(t, 2, fx.notifier.count())

	m := fx.poller.Metrics()
	assert.Equal(t, 1, m.ErrorsLastHour)
	assert.Equal(t, 2, m.OperationsLastHour)
}

func TestPoller_RunCycle_NotifierFailure(t *testing.T) {
	fx := newPollerFixture(t)
	doc := fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(2*time.Second))
	fx.notifier.err = errors.New("smtp unavailable")

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Notifications)

	records := fx.history(t, docD1)
	require.Len(t, records, 1)
	assert.False(t, records[0].NotificationSent)
	assert.Contains(t, records[0].NotificationError, "smtp unavailable")

	row := fx.reload(t, doc.ID)
	assert.True(t, row.LastNotificationAt.IsZero())
	assert.Equal(t, "bob", row.LastKnownModifier, "state is refreshed even when delivery fails")
}

func TestPoller_RunCycle_NoNotifierConfigured(t *testing.T) {
	fx := newPollerFixture(t)
	fx.poller = NewPoller(testPollerConfig(), fx.store, fx.provider, nil, fx.clock, nil)
	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(2*time.Second))

	fx.poller.RunCycle(context.Background())

	records := fx.history(t, docD1)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].NotificationError, "no notifier configured")
}

func TestPoller_RunCycle_DeactivatedMidCycle(t *testing.T) {
	fx := newPollerFixture(t)
	doc := fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(2*time.Second))
	fx.provider.onFetch = func(docID string) {
		_, err := fx.store.StopTracking(context.Background(), testTenant, docID, "")
		assert.NoError(t, err)
	}

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Empty(t, fx.history(t, docD1))
	assert.Zero(t, fx.notifier.count())
	assert.Equal(t, "alice", fx.reload(t, doc.ID).LastKnownModifier)
}

func TestPoller_RunCycle_SkipsInactiveAndOtherTenants(t *testing.T) {
	fx := newPollerFixture(t)
	ctx := context.Background()
	fx.track(t, docD1, "alice", at(time.Second))
	_, err := fx.store.StopTracking(ctx, testTenant, docD1, "")
	require.NoError(t, err)

	_, err = fx.store.StartTracking(ctx, "globex", domain.StartTrackingRequest{
		DocID: docD2, DocType: domain.DocTypeDocument, Destination: destTeam,
	})
	require.NoError(t, err)
	fx.provider.set(docD2, "bob", at(2*time.Second))

	report := fx.poller.RunCycle(ctx)

	assert.Equal(t, 1, report.Total)
	assert.Zero(t, fx.provider.callCount(docD1))
	assert.Equal(t, 1, fx.provider.callCount(docD2))

	records, err := fx.store.GetChangeHistory(ctx, "globex", docD2, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChangeTypeNewDocument, records[0].ChangeType)
}

func TestPoller_RunCycle_BoundedConcurrency(t *testing.T) {
	fx := newPollerFixture(t)
	cfg := testPollerConfig()
	cfg.MaxConcurrentPolls = 2
	require.NoError(t, fx.poller.UpdateConfig(cfg))

	ids := []string{"Cxaaaaaaaaaaaaaaaa", "Cxbbbbbbbbbbbbbbbb", "Cxcccccccccccccccc", "Cxdddddddddddddddd", "Cxeeeeeeeeeeeeeeee"}
	for _, id := range ids {
		fx.track(t, id, "alice", at(time.Second))
		fx.provider.set(id, "alice", at(time.Second))
	}

	var inFlight, peak int
	fx.provider.onFetch = func(string) {
		fx.provider.mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		fx.provider.mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		fx.provider.mu.Lock()
		inFlight--
		fx.provider.mu.Unlock()
	}

	report := fx.poller.RunCycle(context.Background())

	assert.Equal(t, len(ids), report.Succeeded)
	fx.provider.mu.Lock()
	defer fx.provider.mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.GreaterOrEqual(t, peak, 1)
}

func TestPoller_CheckDocument(t *testing.T) {
	fx := newPollerFixture(t)
	ctx := context.Background()
	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "bob", at(2*time.Second))

	results, err := fx.poller.CheckDocument(ctx, testTenant, docD1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, destTeam, results[0].Destination)
	assert.True(t, results[0].Detection.HasChanged)
	assert.True(t, results[0].NotificationSent)
	assert.Empty(t, results[0].Error)
}

func TestPoller_CheckDocument_BypassesCache(t *testing.T) {
	fx := newPollerFixture(t)
	cfg := testPollerConfig()
	cfg.CacheTTL = time.Hour
	require.NoError(t, fx.poller.UpdateConfig(cfg))
	ctx := context.Background()
	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "alice", at(time.Second))

	fx.poller.RunCycle(ctx)
	fx.provider.set(docD1, "bob", at(2*time.Second))

	results, err := fx.poller.CheckDocument(ctx, testTenant, docD1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].Detection.CurrentModifier)
	assert.Equal(t, 2, fx.provider.callCount(docD1))
}

func TestPoller_CheckDocument_Errors(t *testing.T) {
	fx := newPollerFixture(t)
	ctx := context.Background()

	_, err := fx.poller.CheckDocument(ctx, "", docD1)
	require.ErrorIs(t, err, domain.ErrTenantRequired)

	_, err = fx.poller.CheckDocument(ctx, testTenant, docD1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.failWith(docD1, fmt.Errorf("%w: no access", domain.ErrForbidden))

	results, err := fx.poller.CheckDocument(ctx, testTenant, docD1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "forbidden")
	assert.Equal(t, 1, fx.poller.Metrics().ErrorsLastHour)
}

func TestPoller_ObserveFirst(t *testing.T) {
	fx := newPollerFixture(t)
	doc := fx.track(t, docD1, "alice", at(time.Second))
	md := domain.DocumentMetadata{
		DocID: docD1, Title: "Plan", LastModifiedBy: "alice", LastModifiedAt: at(time.Second),
		DocType: domain.DocTypeDocument,
	}

	res := fx.poller.ObserveFirst(context.Background(), *doc, md)

	assert.Equal(t, domain.ChangeTypeNewDocument, res.Detection.ChangeType)
	assert.True(t, res.NotificationSent)
	records := fx.history(t, docD1)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChangeTypeNewDocument, records[0].ChangeType)
	assert.Equal(t, testBase, fx.reload(t, doc.ID).LastNotificationAt)
}

func TestPoller_UpdateConfig(t *testing.T) {
	fx := newPollerFixture(t)

	bad := testPollerConfig()
	bad.Interval = 0
	require.ErrorIs(t, fx.poller.UpdateConfig(bad), domain.ErrInvalidInput)
	assert.Equal(t, time.Minute, fx.poller.Config().Interval)

	good := testPollerConfig()
	good.DebounceWindow = time.Hour
	require.NoError(t, fx.poller.UpdateConfig(good))
	assert.Equal(t, time.Hour, fx.poller.Config().DebounceWindow)
}

func TestPoller_StartRunsFirstCycleImmediately(t *testing.T) {
	fx := newPollerFixture(t)
	fx.track(t, docD1, "alice", at(time.Second))
	fx.provider.set(docD1, "alice", at(time.Second))

	done := make(chan error, 1)
	go func() {
		done <- fx.poller.Start(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return fx.poller.Metrics().CyclesCompleted == 1
	}, time.Second, 5*time.Millisecond)

	// The loop is now waiting on the interval timer.
	require.NoError(t, fx.clock.WaitAdvance(time.Minute, time.Second, 1))
	assert.Eventually(t, func() bool {
		return fx.poller.Metrics().CyclesCompleted == 2
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, fx.poller.Start(context.Background()), domain.ErrPollerRunning)

	require.NoError(t, fx.poller.Stop())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	fx := newPollerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- fx.poller.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return fx.poller.Metrics().CyclesCompleted == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	require.NoError(t, fx.poller.Stop())
}

func TestPoller_StartRejectsInvalidConfig(t *testing.T) {
	fx := newPollerFixture(t)
	cfg := testPollerConfig()
	cfg.MaxConcurrentPolls = 0
	fx.poller = NewPoller(cfg, fx.store, fx.provider, fx.notifier, fx.clock, nil)

	err := fx.poller.Start(context.Background())

	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPoller_StopWhenNotRunning(t *testing.T) {
	fx := newPollerFixture(t)
	require.NoError(t, fx.poller.Stop())
}
