package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// Ensure Poller implements the interface.
var _ driving.Poller = (*Poller)(nil)

// Poller runs change-detection cycles over every active tracked document.
//
// Only one poller may run per deployment: two instances against the same
// store would send duplicate notifications.
type Poller struct {
	store    driven.TrackingStore
	fetcher  *MetadataFetcher
	notifier driven.Notifier
	metrics  *Metrics
	clock    clock.Clock

	cfgMu sync.RWMutex
	cfg   domain.PollerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPoller creates a poller with its collaborators.
// A nil clock uses the wall clock; a nil metrics creates a fresh aggregate.
func NewPoller(
	cfg domain.PollerConfig,
	store driven.TrackingStore,
	provider driven.MetadataProvider,
	notifier driven.Notifier,
	clk clock.Clock,
	metrics *Metrics,
) *Poller {
	if clk == nil {
		clk = clock.WallClock
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Poller{
		store:    store,
		fetcher:  NewMetadataFetcher(provider, cfg, clk, metrics),
		notifier: notifier,
		metrics:  metrics,
		clock:    clk,
		cfg:      cfg,
	}
}

// Fetcher returns the poller's metadata fetcher.
func (p *Poller) Fetcher() *MetadataFetcher {
	return p.fetcher
}

// Config returns the active configuration.
func (p *Poller) Config() domain.PollerConfig {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.cfg
}

// UpdateConfig replaces the configuration. The running loop picks it up
// before its next cycle.
func (p *Poller) UpdateConfig(cfg domain.PollerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.cfgMu.Lock()
	p.cfg = cfg
	p.cfgMu.Unlock()
	p.fetcher.SetConfig(cfg)
	logger.Info("poller: configuration updated (interval %s, debounce %s)", cfg.Interval, cfg.DebounceWindow)
	return nil
}

// Metrics returns a snapshot of the polling metrics.
func (p *Poller) Metrics() domain.PollingMetrics {
	return p.metrics.Snapshot(p.clock.Now())
}

// Start begins the poll loop. The first cycle runs immediately, then one
// cycle per interval measured from the start of the previous cycle.
// This method blocks until Stop is called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return domain.ErrPollerRunning
	}
	if err := p.Config().Validate(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("invalid poller config: %w", err)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.wg.Add(1)
	p.mu.Unlock()

	defer p.wg.Done()
	return p.run(ctx, stopCh)
}

// Stop gracefully shuts down the poller and waits for the in-flight cycle.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// run is the main poll loop. Cycles never overlap.
func (p *Poller) run(ctx context.Context, stopCh <-chan struct{}) error {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	for {
		started := p.clock.Now()
		p.RunCycle(ctx)

		wait := p.Config().Interval - p.clock.Now().Sub(started)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-p.clock.After(wait):
		}
	}
}

// CycleReport summarises one poll cycle.
type CycleReport struct {
	StartedAt     time.Time
	Duration      time.Duration
	Total         int
	Succeeded     int
	Failed        int
	Skipped       int
	Changes       int
	Notifications int

	// FailedListings counts tenant or tracked-set listings that failed.
	FailedListings int
}

// docOutcome is the result of processing one tracked row.
type docOutcome struct {
	detection        domain.ChangeDetectionResult
	notificationSent bool
	notificationRef  string
	skipped          bool
	err              error
}

// RunCycle performs one full pass over every tenant's active tracked
// documents. Per-document failures are logged and counted; they never
// abort the cycle.
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	cfg := p.Config()
	report := CycleReport{StartedAt: p.clock.Now()}
	logger.Section("Poll cycle")

	docs, failedListings := p.snapshotTracked(ctx)
	report.Total = len(docs)
	report.FailedListings = failedListings

	outcomes := make([]docOutcome, len(docs))
	limit := cfg.MaxConcurrentPolls
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range docs {
		g.Go(func() error {
			outcomes[i] = p.processDocument(ctx, cfg, docs[i], true)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // work items never return errors

	for i := range outcomes {
		o := outcomes[i]
		p.metrics.RecordOperation(p.clock.Now(), o.err != nil)
		switch {
		case o.err != nil:
			report.Failed++
		case o.skipped:
			report.Skipped++
			report.Succeeded++
		default:
			report.Succeeded++
		}
		if o.detection.HasChanged {
			report.Changes++
		}
		if o.notificationSent {
			report.Notifications++
		}
	}

	report.Duration = p.clock.Now().Sub(report.StartedAt)
	p.metrics.RecordCycle(report.StartedAt, report.Duration, report.Total, report.Succeeded, report.FailedListings)
	logger.Info("poll cycle: %d docs, %d changed, %d notified, %d failed in %s",
		report.Total, report.Changes, report.Notifications, report.Failed, report.Duration)
	return report
}

// snapshotTracked reads the active set for every tenant. The set is
// re-read each cycle so start/stop commands apply by the next cycle.
// It returns the documents and the number of listings that failed.
func (p *Poller) snapshotTracked(ctx context.Context) ([]domain.TrackedDocument, int) {
	tenants, err := p.store.ListTenants(ctx)
	if err != nil {
		logger.Error("poll cycle: list tenants: %v", err)
		p.metrics.RecordOperation(p.clock.Now(), true)
		return nil, 1
	}

	var docs []domain.TrackedDocument
	failed := 0
	for _, tenant := range tenants {
		tracked, err := p.store.ListTracked(ctx, tenant, true)
		if err != nil {
			logger.Error("poll cycle: list tracked for tenant %s: %v", tenant, err)
			p.metrics.RecordOperation(p.clock.Now(), true)
			failed++
			continue
		}
		docs = append(docs, tracked...)
	}
	return docs, failed
}

// CheckDocument runs the pipeline immediately for every active row of
// docID, bypassing any cached snapshot.
func (p *Poller) CheckDocument(ctx context.Context, tenant domain.TenantID, docID string) ([]driving.CheckResult, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	tracked, err := p.store.ListTracked(ctx, tenant, true)
	if err != nil {
		return nil, fmt.Errorf("list tracked: %w", err)
	}

	cfg := p.Config()
	p.fetcher.Invalidate(docID)

	var results []driving.CheckResult
	for i := range tracked {
		if tracked[i].DocID != docID {
			continue
		}
		// The first row refreshes the cache; later rows reuse the snapshot.
		o := p.processDocument(ctx, cfg, tracked[i], true)
		p.metrics.RecordOperation(p.clock.Now(), o.err != nil)
		results = append(results, toCheckResult(tracked[i], o))
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s is not tracked", domain.ErrNotFound, docID)
	}
	return results, nil
}

// ObserveFirst records the first observation of a freshly tracked row
// using metadata the caller already fetched.
func (p *Poller) ObserveFirst(
	ctx context.Context, doc domain.TrackedDocument, md domain.DocumentMetadata,
) driving.CheckResult {
	o := p.evaluate(ctx, p.Config(), doc, md, true)
	p.metrics.RecordOperation(p.clock.Now(), o.err != nil)
	return toCheckResult(doc, o)
}

// processDocument fetches and evaluates one tracked row.
func (p *Poller) processDocument(
	ctx context.Context, cfg domain.PollerConfig, doc domain.TrackedDocument, useCache bool,
) docOutcome {
	if err := ctx.Err(); err != nil {
		return docOutcome{err: err}
	}

	md, err := p.fetcher.Fetch(ctx, doc.DocID, doc.DocType, useCache)
	if err != nil {
		logger.Warn("poll %s (%s): fetch: %v", doc.DocID, doc.Tenant, err)
		return docOutcome{err: err}
	}

	// Re-read so a row deactivated mid-cycle gets no writes.
	current, err := p.store.GetTracked(ctx, doc.Tenant, doc.ID)
	if err != nil {
		logger.Error("poll %s (%s): reload tracked row: %v", doc.DocID, doc.Tenant, err)
		return docOutcome{err: fmt.Errorf("%w: %w", domain.ErrPersistence, err)}
	}
	if !current.Active {
		logger.Debug("poll %s (%s): deactivated during cycle, skipping writes", doc.DocID, doc.Tenant)
		return docOutcome{skipped: true}
	}

	return p.evaluate(ctx, cfg, *current, *md, false)
}

// evaluate runs detection on md and performs the notify and persistence
// steps. Every step runs even if an earlier one failed; errors are joined.
func (p *Poller) evaluate(
	ctx context.Context, cfg domain.PollerConfig, doc domain.TrackedDocument, md domain.DocumentMetadata, first bool,
) docOutcome {
	now := p.clock.Now()

	previous := &doc
	if first {
		previous = nil
	}
	result := Detect(md, previous, cfg.DebounceWindow, doc.LastNotificationAt, now)
	out := docOutcome{detection: result}

	var errs []error
	if result.HasChanged {
		logger.Debug("poll %s (%s): %s, %s", doc.DocID, doc.Tenant, result.ChangeType, result.Reason)

		record := domain.ChangeAuditRecord{
			ID:                 uuid.New().String(),
			Tenant:             doc.Tenant,
			TrackedID:          doc.ID,
			DocID:              doc.DocID,
			Destination:        doc.NotifyDestination,
			PreviousModifier:   result.PreviousModifier,
			NewModifier:        result.CurrentModifier,
			PreviousModifiedAt: result.PreviousModifiedAt,
			NewModifiedAt:      result.CurrentModifiedAt,
			ChangeType:         result.ChangeType,
			Debounced:          result.Debounced,
			DetectedAt:         now,
		}

		// Notify before the insert: audit rows are immutable, so the
		// delivery outcome must be known when the row is written.
		if result.ShouldNotify() {
			ref, err := p.notify(ctx, doc, md, result)
			if err != nil {
				record.NotificationError = err.Error()
				errs = append(errs, err)
			} else {
				record.NotificationSent = true
				record.NotificationRef = ref
				out.notificationSent = true
				out.notificationRef = ref
				p.metrics.RecordNotification(now)
			}
		}

		if err := p.store.RecordChange(ctx, doc.Tenant, record); err != nil {
			logger.Error("poll %s (%s): record change: %v", doc.DocID, doc.Tenant, err)
			errs = append(errs, fmt.Errorf("%w: record change: %w", domain.ErrPersistence, err))
		}

		if out.notificationSent {
			if err := p.store.UpdateLastNotificationTime(ctx, doc.Tenant, doc.ID, now); err != nil {
				logger.Error("poll %s (%s): update notification time: %v", doc.DocID, doc.Tenant, err)
				errs = append(errs, fmt.Errorf("%w: update notification time: %w", domain.ErrPersistence, err))
			}
		}
	}

	if err := p.store.UpdateLastKnownState(
		ctx, doc.Tenant, doc.ID, md.LastModifiedBy, md.LastModifiedAt, now,
	); err != nil {
		logger.Error("poll %s (%s): update last known state: %v", doc.DocID, doc.Tenant, err)
		errs = append(errs, fmt.Errorf("%w: update last known state: %w", domain.ErrPersistence, err))
	}

	out.err = errors.Join(errs...)
	return out
}

// notify renders and delivers the notification for one change.
func (p *Poller) notify(
	ctx context.Context, doc domain.TrackedDocument, md domain.DocumentMetadata, result domain.ChangeDetectionResult,
) (string, error) {
	if p.notifier == nil {
		return "", fmt.Errorf("%w: no notifier configured", domain.ErrNotifier)
	}
	msg := RenderMessage(doc, md, result)
	ref, err := p.notifier.Notify(ctx, doc.NotifyDestination, msg)
	if err != nil {
		logger.Error("poll %s (%s): notify %s: %v", doc.DocID, doc.Tenant, doc.NotifyDestination, err)
		if errors.Is(err, domain.ErrNotifier) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrNotifier, err)
	}
	return ref, nil
}

func toCheckResult(doc domain.TrackedDocument, o docOutcome) driving.CheckResult {
	res := driving.CheckResult{
		TrackedID:        doc.ID,
		Destination:      doc.NotifyDestination,
		Detection:        o.detection,
		NotificationSent: o.notificationSent,
		NotificationRef:  o.notificationRef,
	}
	if o.skipped {
		res.Error = "document was deactivated during the check"
	}
	if o.err != nil {
		res.Error = o.err.Error()
	}
	return res
}
