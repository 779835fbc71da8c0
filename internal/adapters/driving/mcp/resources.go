package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docwatch resources.
	uriScheme = "docwatch://"

	// historyLimit caps the records returned by the history resource.
	historyLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tracked",
		Name:        "tracked",
		Description: "Documents currently being watched",
		MIMEType:    "application/json",
	}, s.handleTrackedResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{docId}/history",
		Name:        "document-history",
		Description: "Recent change audit records for a document",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

// handleTrackedResource returns the active tracked documents.
func (s *Server) handleTrackedResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Tracker.List(ctx, s.ports.Tenant, false)
	if err != nil {
		return nil, fmt.Errorf("listing tracked documents: %w", err)
	}

	infos := make([]TrackedOutput, len(docs))
	for i := range docs {
		infos[i] = toTrackedOutput(&docs[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleHistoryResource returns the change history for one document.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// docwatch://documents/{docId}/history
	docID := extractHistoryDocID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Tracker.History(ctx, s.ports.Tenant, docID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("getting change history: %w", err)
	}

	out := make([]ChangeOutput, len(records))
	for i := range records {
		out[i] = toChangeOutput(&records[i])
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractHistoryDocID extracts the doc ID from a URI like docwatch://documents/{docId}/history.
func extractHistoryDocID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/history"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
