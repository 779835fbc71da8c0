package drive

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/docwatch/internal/connectors/google"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.MetadataProvider = (*Provider)(nil)

// Provider reads document metadata through the Drive v3 files.get endpoint.
type Provider struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

// NewProvider creates a Drive metadata provider.
// A nil limiter uses the default Drive rate limits.
func NewProvider(svc *drive.Service, limiter *google.RateLimiter) *Provider {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceDrive)
	}
	return &Provider{svc: svc, limiter: limiter}
}

// FetchRemoteMetadata fetches one file's metadata. Errors wrap domain
// sentinels so the fetcher can tell permanent failures from transient ones.
func (p *Provider) FetchRemoteMetadata(
	ctx context.Context, docID string, docType domain.DocType,
) (*domain.RemoteMetadata, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("drive files.get %s: %w: %w", docID, domain.ErrRequestNotSent, err)
	}

	file, err := p.svc.Files.Get(docID).
		Fields(metadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if google.IsRateLimited(err) {
			p.limiter.RecordRateLimitError(google.RetryAfter(err))
		}
		return nil, fmt.Errorf("drive files.get %s: %w", docID, google.WrapError(err))
	}

	return FileToRemoteMetadata(file, docType)
}
