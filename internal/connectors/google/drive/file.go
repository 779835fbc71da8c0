package drive

import (
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"

	workspacePrefix = "application/vnd.google-apps."
)

// metadataFields is the partial response requested from files.get.
const metadataFields = "id,name,mimeType,owners(emailAddress),createdTime,modifiedTime," +
	"lastModifyingUser(emailAddress,displayName),webViewLink,trashed"

// MatchesDocType reports whether a Drive MIME type is the variant docType expects.
// DocTypeFile accepts any uploaded file but not Workspace-native types or folders.
func MatchesDocType(mimeType string, docType domain.DocType) bool {
	switch docType {
	case domain.DocTypeDocument:
		return mimeType == MimeTypeGoogleDoc
	case domain.DocTypeSpreadsheet:
		return mimeType == MimeTypeGoogleSheet
	case domain.DocTypePresentation:
		return mimeType == MimeTypeGoogleSlides
	case domain.DocTypeFile:
		return mimeType != "" && !strings.HasPrefix(mimeType, workspacePrefix)
	default:
		return false
	}
}

// FileToRemoteMetadata converts a Drive file into the provider-neutral shape.
func FileToRemoteMetadata(file *drive.File, docType domain.DocType) (*domain.RemoteMetadata, error) {
	if file.Trashed {
		return nil, fmt.Errorf("%w: %s is in the trash", domain.ErrNotFound, file.Id)
	}
	if !MatchesDocType(file.MimeType, docType) {
		return nil, fmt.Errorf("%w: %s has mime type %s, not a %s",
			domain.ErrValidation, file.Id, file.MimeType, docType)
	}

	md := &domain.RemoteMetadata{
		ID:           file.Id,
		Name:         file.Name,
		MimeType:     file.MimeType,
		CreatedTime:  file.CreatedTime,
		ModifiedTime: file.ModifiedTime,
		WebViewLink:  file.WebViewLink,
	}
	if md.WebViewLink == "" {
		md.WebViewLink = ResolveWebURL(file.Id, docType)
	}
	if len(file.Owners) > 0 && file.Owners[0] != nil {
		md.OwnerID = file.Owners[0].EmailAddress
	}
	if u := file.LastModifyingUser; u != nil {
		md.LastModifyingUser = u.EmailAddress
		if md.LastModifyingUser == "" {
			md.LastModifyingUser = u.DisplayName
		}
	}
	return md, nil
}
