package domain

import (
	"fmt"
	"time"
)

// ChangeType classifies a detected change.
type ChangeType string

// Change types.
const (
	// ChangeTypeNewDocument is the first observation of a document.
	ChangeTypeNewDocument ChangeType = "new_document"

	// ChangeTypeTimeUpdated means the modification timestamp moved.
	ChangeTypeTimeUpdated ChangeType = "time_updated"

	// ChangeTypeUserChanged means only the last modifier differs.
	ChangeTypeUserChanged ChangeType = "user_changed"

	// ChangeTypeCorrection marks a compensating audit record.
	ChangeTypeCorrection ChangeType = "correction"
)

// IsValid returns true if the change type is recognised.
func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeTypeNewDocument, ChangeTypeTimeUpdated, ChangeTypeUserChanged, ChangeTypeCorrection:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ChangeType) String() string {
	return string(c)
}

// Description returns a human-readable description of the change type.
func (c ChangeType) Description() string {
	switch c {
	case ChangeTypeNewDocument:
		return "Now tracking"
	case ChangeTypeTimeUpdated:
		return "Document updated"
	case ChangeTypeUserChanged:
		return "Modifier changed"
	case ChangeTypeCorrection:
		return "Audit correction"
	default:
		return "Unknown"
	}
}

// ChangeDetectionResult is the outcome of comparing one observation
// against the last known state.
type ChangeDetectionResult struct {
	HasChanged bool

	// ChangeType is set only when HasChanged is true.
	ChangeType ChangeType

	// Debounced is meaningful only when HasChanged is true.
	Debounced bool

	PreviousModifier   string
	PreviousModifiedAt time.Time
	CurrentModifier    string
	CurrentModifiedAt  time.Time

	Reason string
}

// ShouldNotify reports whether the caller should dispatch a notification.
func (r ChangeDetectionResult) ShouldNotify() bool {
	return r.HasChanged && !r.Debounced
}

// ChangeAuditRecord is one append-only audit row. It is written for every
// detected change whether or not a notification was sent, and is never
// mutated after insert.
type ChangeAuditRecord struct {
	ID          string
	Tenant      TenantID
	TrackedID   string
	DocID       string
	Destination string

	PreviousModifier   string
	NewModifier        string
	PreviousModifiedAt time.Time
	NewModifiedAt      time.Time

	ChangeType ChangeType
	Debounced  bool

	NotificationSent  bool
	NotificationRef   string
	NotificationError string

	// CorrectsID references the record a correction compensates.
	CorrectsID string

	DetectedAt time.Time
}

// Validate checks the record before insert. A correction must name the
// record it compensates.
func (r ChangeAuditRecord) Validate() error {
	if !r.ChangeType.IsValid() {
		return fmt.Errorf("%w: change type %q", ErrInvalidInput, r.ChangeType)
	}
	if r.ChangeType == ChangeTypeCorrection && r.CorrectsID == "" {
		return fmt.Errorf("%w: correction without corrects id", ErrInvalidInput)
	}
	return nil
}

// ChangeStats aggregates the audit trail for one document.
type ChangeStats struct {
	DocID             string
	TotalChanges      int
	ByType            map[ChangeType]int
	Debounced         int
	NotificationsSent int
	NotifyFailures    int
	DistinctModifiers int
	FirstDetectedAt   time.Time
	LastDetectedAt    time.Time
}
