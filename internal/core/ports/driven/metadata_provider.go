package driven

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// MetadataProvider fetches modification metadata for a single document
// from the external host. Implementations perform exactly one remote call
// per invocation; retry and caching are the caller's responsibility.
//
// Errors should wrap domain.ErrNotFound, domain.ErrForbidden,
// domain.ErrValidation or domain.ErrRateLimited where they apply so the
// caller can decide whether to retry.
type MetadataProvider interface {
	FetchRemoteMetadata(ctx context.Context, docID string, docType domain.DocType) (*domain.RemoteMetadata, error)
}
