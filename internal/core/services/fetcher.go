package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// cacheKey identifies a snapshot by document and requested type.
type cacheKey struct {
	docID   string
	docType domain.DocType
}

// cacheEntry is a cached snapshot stamped with its insertion time.
type cacheEntry struct {
	metadata domain.DocumentMetadata
	storedAt time.Time
}

// MetadataFetcher is a read-through cache with bounded retry over a
// MetadataProvider. It never writes to the tracking store.
type MetadataFetcher struct {
	provider driven.MetadataProvider
	clock    clock.Clock
	metrics  *Metrics

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	cfg   domain.PollerConfig
	cache map[cacheKey]cacheEntry
}

// NewMetadataFetcher creates a fetcher. metrics may be nil.
func NewMetadataFetcher(
	provider driven.MetadataProvider, cfg domain.PollerConfig, clk clock.Clock, metrics *Metrics,
) *MetadataFetcher {
	if clk == nil {
		clk = clock.WallClock
	}
	f := &MetadataFetcher{
		provider: provider,
		clock:    clk,
		metrics:  metrics,
		cfg:      cfg,
		cache:    make(map[cacheKey]cacheEntry),
	}
	f.sleep = f.clockSleep
	return f
}

// SetConfig replaces the retry, timeout and cache settings.
func (f *MetadataFetcher) SetConfig(cfg domain.PollerConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

// Fetch returns the current metadata for a document.
//
// Invalid references fail with domain.ErrValidation before any cache or
// provider access. When useCache is true a snapshot younger than the cache
// TTL is returned without a remote call. Transient failures are retried;
// exhausting every attempt returns domain.ErrFetchFailed.
func (f *MetadataFetcher) Fetch(
	ctx context.Context, docID string, docType domain.DocType, useCache bool,
) (*domain.DocumentMetadata, error) {
	if err := domain.ValidateDocRef(docID, docType); err != nil {
		return nil, err
	}

	f.mu.Lock()
	cfg := f.cfg
	f.mu.Unlock()

	if useCache {
		if md, ok := f.cached(cacheKey{docID, docType}, cfg.CacheTTL); ok {
			logger.Debug("fetch %s: cache hit", docID)
			return md, nil
		}
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := f.fetchOnce(ctx, docID, docType, cfg.FetchTimeout)
		if err == nil {
			md, mapErr := toDocumentMetadata(raw, docID, docType)
			if mapErr != nil {
				logger.Error("fetch %s: %v", docID, mapErr)
				return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, mapErr)
			}
			f.store(cacheKey{docID, docType}, *md)
			return md, nil
		}
		lastErr = err

		if domain.IsPermanentFetchError(err) {
			logger.Warn("fetch %s: permanent error, not retrying: %v", docID, err)
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, ctx.Err())
		}
		if attempt == attempts {
			break
		}

		delay := cfg.RetryDelay(attempt)
		logger.Warn("fetch %s: attempt %d/%d failed, retrying in %s: %v", docID, attempt, attempts, delay, err)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
	}

	logger.Error("fetch %s: all %d attempts failed: %v", docID, attempts, lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrFetchFailed, attempts, lastErr)
}

// Invalidate drops every cached snapshot for docID.
func (f *MetadataFetcher) Invalidate(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.cache {
		if key.docID == docID {
			delete(f.cache, key)
		}
	}
}

// Purge drops every cached snapshot.
func (f *MetadataFetcher) Purge() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[cacheKey]cacheEntry)
}

// fetchOnce performs a single provider call bounded by its own timeout.
func (f *MetadataFetcher) fetchOnce(
	ctx context.Context, docID string, docType domain.DocType, timeout time.Duration,
) (*domain.RemoteMetadata, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := f.provider.FetchRemoteMetadata(attemptCtx, docID, docType)
	if f.metrics != nil {
		rateLimited := errors.Is(err, domain.ErrRateLimited)
		switch {
		case !errors.Is(err, domain.ErrRequestNotSent):
			f.metrics.RecordAPICall(f.clock.Now(), rateLimited)
		case rateLimited:
			f.metrics.RecordRateLimited(f.clock.Now())
		}
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("empty metadata response for %s", docID)
	}
	return raw, nil
}

// cached returns a snapshot if present and younger than ttl.
// Expired entries are evicted on read.
func (f *MetadataFetcher) cached(key cacheKey, ttl time.Duration) (*domain.DocumentMetadata, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.cache[key]
	if !ok {
		return nil, false
	}
	if ttl <= 0 || f.clock.Now().Sub(entry.storedAt) >= ttl {
		delete(f.cache, key)
		return nil, false
	}
	md := entry.metadata
	return &md, true
}

func (f *MetadataFetcher) store(key cacheKey, md domain.DocumentMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[key] = cacheEntry{metadata: md, storedAt: f.clock.Now()}
}

func (f *MetadataFetcher) clockSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clock.After(d):
		return nil
	}
}

// toDocumentMetadata maps a raw provider response into the canonical snapshot.
func toDocumentMetadata(raw *domain.RemoteMetadata, docID string, docType domain.DocType) (*domain.DocumentMetadata, error) {
	modifiedAt, err := parseProviderTime(raw.ModifiedTime)
	if err != nil {
		return nil, fmt.Errorf("parse modified time: %w", err)
	}
	if modifiedAt.IsZero() {
		return nil, fmt.Errorf("%w: response for %s has no modified time", domain.ErrInvalidInput, docID)
	}
	createdAt, err := parseProviderTime(raw.CreatedTime)
	if err != nil {
		return nil, fmt.Errorf("parse created time: %w", err)
	}

	id := raw.ID
	if id == "" {
		id = docID
	}

	return &domain.DocumentMetadata{
		DocID:          id,
		Title:          raw.Name,
		OwnerID:        raw.OwnerID,
		CreatedAt:      createdAt,
		LastModifiedBy: raw.LastModifyingUser,
		LastModifiedAt: domain.NormaliseTimestamp(modifiedAt),
		DocType:        docType,
		WebLink:        raw.WebViewLink,
	}, nil
}

// parseProviderTime parses an RFC 3339 timestamp. Empty input yields zero time.
func parseProviderTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC 3339", domain.ErrInvalidInput, s)
	}
	return t.UTC(), nil
}
