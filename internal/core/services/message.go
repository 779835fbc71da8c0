package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// RenderMessage builds the plain-text notification for a detected change.
func RenderMessage(doc domain.TrackedDocument, md domain.DocumentMetadata, result domain.ChangeDetectionResult) driven.Message {
	title := md.Title
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = doc.DocID
	}

	modifier := result.CurrentModifier
	if modifier == "" {
		modifier = "unknown user"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", result.ChangeType.Description(), title)
	fmt.Fprintf(&b, "Document:    %s (%s)\n", doc.DocID, doc.DocType)
	fmt.Fprintf(&b, "Modified by: %s\n", modifier)
	if !result.CurrentModifiedAt.IsZero() {
		fmt.Fprintf(&b, "Modified at: %s\n", result.CurrentModifiedAt.Format(time.RFC3339))
	}
	if result.ChangeType != domain.ChangeTypeNewDocument && result.PreviousModifier != "" {
		fmt.Fprintf(&b, "Previously:  %s at %s\n",
			result.PreviousModifier, result.PreviousModifiedAt.Format(time.RFC3339))
	}
	if md.WebLink != "" {
		fmt.Fprintf(&b, "Link:        %s\n", md.WebLink)
	}

	return driven.Message{
		Subject: fmt.Sprintf("[docwatch] %s: %s", result.ChangeType.Description(), title),
		Body:    b.String(),
	}
}
