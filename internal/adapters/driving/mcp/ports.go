package mcp

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

// RefResolver turns a document URL or bare ID into (docID, docType).
type RefResolver func(ref string, docType domain.DocType) (string, domain.DocType, error)

// Ports aggregates the dependencies required by the MCP server.
type Ports struct {
	// Tracker implements every tool.
	Tracker driving.TrackerService

	// Tenant scopes all calls made through this server.
	Tenant domain.TenantID

	// ResolveRef is optional; without it refs must be bare IDs.
	ResolveRef RefResolver
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Tracker == nil {
		return ErrMissingTrackerService
	}
	return p.Tenant.Validate()
}

// resolve applies ResolveRef, or validates a bare ID.
func (p *Ports) resolve(ref string, docType domain.DocType) (string, domain.DocType, error) {
	if p.ResolveRef != nil {
		return p.ResolveRef(ref, docType)
	}
	return ref, docType, domain.ValidateDocRef(ref, docType)
}

// lookupID resolves ref for calls that only need the doc ID. A bare ID
// with no type is taken as-is.
func (p *Ports) lookupID(ref string, docType domain.DocType) (string, error) {
	ref = strings.TrimSpace(ref)
	if docType == "" && !strings.Contains(ref, "://") {
		if ref == "" {
			return "", fmt.Errorf("%w: doc_ref is required", domain.ErrInvalidInput)
		}
		return ref, nil
	}
	id, _, err := p.resolve(ref, docType)
	return id, err
}
