package domain

import (
	"fmt"
	"regexp"
	"time"
)

// DocType identifies which provider document variant is being tracked.
// It is a closed set; anything else is a validation error.
type DocType string

// Supported document types.
const (
	// DocTypeDocument is a text document.
	DocTypeDocument DocType = "document"

	// DocTypeSpreadsheet is a spreadsheet.
	DocTypeSpreadsheet DocType = "spreadsheet"

	// DocTypePresentation is a slide deck.
	DocTypePresentation DocType = "presentation"

	// DocTypeFile is an uploaded, non-native file.
	DocTypeFile DocType = "file"
)

// AllDocTypes lists every supported document type.
var AllDocTypes = []DocType{DocTypeDocument, DocTypeSpreadsheet, DocTypePresentation, DocTypeFile}

// IsValid returns true if the doc type is recognised.
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeDocument, DocTypeSpreadsheet, DocTypePresentation, DocTypeFile:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocType) String() string {
	return string(t)
}

// docIDPattern matches the provider's opaque document token shape.
var docIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,128}$`)

// ValidateDocRef checks a doc ID and doc type before any provider call.
func ValidateDocRef(docID string, docType DocType) error {
	if !docIDPattern.MatchString(docID) {
		return fmt.Errorf("%w: malformed doc id %q", ErrValidation, docID)
	}
	if !docType.IsValid() {
		return fmt.Errorf("%w: unsupported doc type %q", ErrValidation, string(docType))
	}
	return nil
}

// TimestampGranularity is the provider's native timestamp resolution.
// Modifications inside the same second are not distinguishable.
const TimestampGranularity = time.Second

// NormaliseTimestamp truncates t to TimestampGranularity in UTC.
func NormaliseTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(TimestampGranularity)
}

// RemoteMetadata is the raw metadata response returned by a provider.
// Timestamps are RFC 3339 strings exactly as the provider sent them.
type RemoteMetadata struct {
	ID                string
	Name              string
	MimeType          string
	OwnerID           string
	CreatedTime       string
	ModifiedTime      string
	LastModifyingUser string
	WebViewLink       string
}

// DocumentMetadata is a canonical snapshot of a document's modification state.
type DocumentMetadata struct {
	DocID          string
	Title          string
	OwnerID        string
	CreatedAt      time.Time
	LastModifiedBy string

	// LastModifiedAt is the authoritative clock for change detection.
	LastModifiedAt time.Time

	DocType DocType

	// WebLink opens the document in a browser. May be empty.
	WebLink string
}

// TrackedDocument is one watched (document, destination) pair within a tenant.
type TrackedDocument struct {
	// ID is the unique row identifier.
	ID string

	// Tenant owns the row.
	Tenant TenantID

	DocID   string
	DocType DocType
	Title   string

	// NotifyDestination is where change notifications are sent
	// (e.g. "mailto:team@example.com" or an https webhook URL).
	NotifyDestination string

	OwnerUserID string

	LastKnownModifier   string
	LastKnownModifiedAt time.Time

	// LastNotificationAt only ever advances. Zero means never notified.
	LastNotificationAt time.Time

	// LastCheckedAt is when the poller last fetched this document successfully.
	LastCheckedAt time.Time

	// Active rows are polled; inactive rows are kept for audit continuity.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StartTrackingRequest describes a document to start watching.
type StartTrackingRequest struct {
	DocID       string
	DocType     DocType
	Destination string
	OwnerUserID string

	// Initial is the metadata observed when tracking started. Optional.
	Initial *DocumentMetadata
}

// Validate checks the request fields.
func (r StartTrackingRequest) Validate() error {
	if err := ValidateDocRef(r.DocID, r.DocType); err != nil {
		return err
	}
	if r.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidInput)
	}
	return nil
}
