package drive

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// pathTypes maps the first path segment of a docs.google.com URL to a doc type.
var pathTypes = map[string]domain.DocType{
	"document":     domain.DocTypeDocument,
	"spreadsheets": domain.DocTypeSpreadsheet,
	"presentation": domain.DocTypePresentation,
	"file":         domain.DocTypeFile,
}

// ResolveWebURL builds the browser URL for a document when the API
// response did not include webViewLink.
func ResolveWebURL(docID string, docType domain.DocType) string {
	if docID == "" {
		return ""
	}
	switch docType {
	case domain.DocTypeDocument:
		return "https://docs.google.com/document/d/" + docID + "/edit"
	case domain.DocTypeSpreadsheet:
		return "https://docs.google.com/spreadsheets/d/" + docID + "/edit"
	case domain.DocTypePresentation:
		return "https://docs.google.com/presentation/d/" + docID + "/edit"
	default:
		return "https://drive.google.com/file/d/" + docID + "/view"
	}
}

// ParseDocRef resolves a document URL or bare ID into (docID, docType).
//
// URLs of the form https://docs.google.com/<kind>/d/<id>/... or
// https://drive.google.com/file/d/<id>/... carry their own type, and an
// explicit docType that disagrees is a validation error. A bare ID needs
// docType. "open?id=<id>" links are accepted too.
func ParseDocRef(ref string, docType domain.DocType) (string, domain.DocType, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "://") {
		if docType == "" {
			return "", "", fmt.Errorf("%w: doc type is required for a bare doc id", domain.ErrValidation)
		}
		return ref, docType, domain.ValidateDocRef(ref, docType)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if u.Host != "docs.google.com" && u.Host != "drive.google.com" {
		return "", "", fmt.Errorf("%w: unrecognised host %q", domain.ErrValidation, u.Host)
	}

	var id string
	var urlType domain.DocType
	// /<kind>[/u/<n>]/d/<id>/...
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 1; i+1 < len(parts); i++ {
		if parts[i] == "d" {
			id, urlType = parts[i+1], pathTypes[parts[0]]
			break
		}
	}
	if id == "" {
		id = u.Query().Get("id")
	}
	if id == "" {
		return "", "", fmt.Errorf("%w: no document id in %q", domain.ErrValidation, ref)
	}

	switch {
	case urlType == "" && docType == "":
		return "", "", fmt.Errorf("%w: doc type is required for %q", domain.ErrValidation, ref)
	case urlType == "":
		urlType = docType
	case docType != "" && docType != urlType:
		return "", "", fmt.Errorf("%w: url is a %s, not a %s", domain.ErrValidation, urlType, docType)
	}

	return id, urlType, domain.ValidateDocRef(id, urlType)
}
