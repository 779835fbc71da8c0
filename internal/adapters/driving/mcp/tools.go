package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

// WatchInput is the input schema for the watch tool.
type WatchInput struct {
	DocRef      string `json:"doc_ref" jsonschema:"document URL or ID"`
	DocType     string `json:"doc_type,omitempty" jsonschema:"document, spreadsheet, presentation or file; required for bare IDs"`
	Destination string `json:"destination" jsonschema:"where to send notifications, e.g. mailto:team@example.com or an https webhook URL"`
	OwnerUserID string `json:"owner_user_id,omitempty" jsonschema:"user who requested the watch"`
}

// UnwatchInput is the input schema for the unwatch tool.
type UnwatchInput struct {
	DocRef      string `json:"doc_ref" jsonschema:"document URL or ID"`
	DocType     string `json:"doc_type,omitempty" jsonschema:"required for bare IDs"`
	Destination string `json:"destination,omitempty" jsonschema:"stop only this destination; empty stops all"`
}

// DocRefInput identifies one document.
type DocRefInput struct {
	DocRef  string `json:"doc_ref" jsonschema:"document URL or ID"`
	DocType string `json:"doc_type,omitempty" jsonschema:"required for bare IDs"`
}

// ListInput is the input schema for the list_watched tool.
type ListInput struct {
	IncludeInactive bool `json:"include_inactive,omitempty" jsonschema:"also list documents that are no longer watched"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	DocRef  string `json:"doc_ref" jsonschema:"document URL or ID"`
	DocType string `json:"doc_type,omitempty" jsonschema:"required for bare IDs"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of records to return (default 20)"`
}

// TrackedOutput describes one watched (document, destination) pair.
type TrackedOutput struct {
	ID             string `json:"id"`
	DocID          string `json:"doc_id"`
	DocType        string `json:"doc_type"`
	Title          string `json:"title,omitempty"`
	Destination    string `json:"destination"`
	Active         bool   `json:"active"`
	LastModifier   string `json:"last_modifier,omitempty"`
	LastModifiedAt string `json:"last_modified_at,omitempty"`
	LastNotifiedAt string `json:"last_notified_at,omitempty"`
	LastCheckedAt  string `json:"last_checked_at,omitempty"`
}

// ListOutput is the output schema for the list_watched tool.
type ListOutput struct {
	Documents []TrackedOutput `json:"documents"`
	Count     int             `json:"count"`
}

// UnwatchOutput is the output schema for the unwatch tool.
type UnwatchOutput struct {
	Stopped int `json:"stopped"`
}

// CheckOutput is the output schema for the check tool.
type CheckOutput struct {
	Results []CheckResultOutput `json:"results"`
}

// CheckResultOutput is the outcome for one tracked row.
type CheckResultOutput struct {
	Destination      string `json:"destination"`
	Changed          bool   `json:"changed"`
	ChangeType       string `json:"change_type,omitempty"`
	Debounced        bool   `json:"debounced,omitempty"`
	Reason           string `json:"reason"`
	NotificationSent bool   `json:"notification_sent"`
	NotificationRef  string `json:"notification_ref,omitempty"`
	Error            string `json:"error,omitempty"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	Records []ChangeOutput `json:"records"`
	Count   int            `json:"count"`
}

// ChangeOutput is one audit record.
type ChangeOutput struct {
	ID                string `json:"id"`
	ChangeType        string `json:"change_type"`
	Destination       string `json:"destination,omitempty"`
	PreviousModifier  string `json:"previous_modifier,omitempty"`
	NewModifier       string `json:"new_modifier,omitempty"`
	NewModifiedAt     string `json:"new_modified_at,omitempty"`
	Debounced         bool   `json:"debounced"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
	CorrectsID        string `json:"corrects_id,omitempty"`
	DetectedAt        string `json:"detected_at"`
}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	DocID             string         `json:"doc_id"`
	TotalChanges      int            `json:"total_changes"`
	ByType            map[string]int `json:"by_type"`
	Debounced         int            `json:"debounced"`
	NotificationsSent int            `json:"notifications_sent"`
	NotifyFailures    int            `json:"notify_failures"`
	DistinctModifiers int            `json:"distinct_modifiers"`
	FirstDetectedAt   string         `json:"first_detected_at,omitempty"`
	LastDetectedAt    string         `json:"last_detected_at,omitempty"`
}

// StatusInput is the (empty) input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	Health                string  `json:"health"`
	DocsTracked           int     `json:"docs_tracked"`
	CyclesCompleted       int     `json:"cycles_completed"`
	LastPollStartedAt     string  `json:"last_poll_started_at,omitempty"`
	LastPollDurationMs    int64   `json:"last_poll_duration_ms"`
	OperationsLastHour    int     `json:"operations_last_hour"`
	ErrorsLastHour        int     `json:"errors_last_hour"`
	NotificationsLastHour int     `json:"notifications_last_hour"`
	APICallsLastHour      int     `json:"api_calls_last_hour"`
	RateLimitErrors       int     `json:"rate_limit_errors_last_hour"`
	SuccessRate           float64 `json:"success_rate"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch",
		Description: "Start watching a document and notify a destination when it changes",
	}, s.handleWatch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unwatch",
		Description: "Stop watching a document",
	}, s.handleUnwatch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check",
		Description: "Check a watched document for changes right now",
	}, s.handleCheck)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_watched",
		Description: "List watched documents",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "Show the change history of a document, most recent first",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Summarise the change history of a document",
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report poller health and recent activity",
	}, s.handleStatus)
}

func (s *Server) handleWatch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WatchInput,
) (*mcp.CallToolResult, TrackedOutput, error) {
	docID, docType, err := s.ports.resolve(input.DocRef, domain.DocType(input.DocType))
	if err != nil {
		return nil, TrackedOutput{}, err
	}

	doc, err := s.ports.Tracker.Watch(ctx, s.ports.Tenant, driving.WatchRequest{
		DocID:       docID,
		DocType:     docType,
		Destination: input.Destination,
		OwnerUserID: input.OwnerUserID,
	})
	if err != nil {
		return nil, TrackedOutput{}, err
	}
	return nil, toTrackedOutput(doc), nil
}

func (s *Server) handleUnwatch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UnwatchInput,
) (*mcp.CallToolResult, UnwatchOutput, error) {
	docID, err := s.ports.lookupID(input.DocRef, domain.DocType(input.DocType))
	if err != nil {
		return nil, UnwatchOutput{}, err
	}

	n, err := s.ports.Tracker.Unwatch(ctx, s.ports.Tenant, docID, input.Destination)
	if err != nil {
		return nil, UnwatchOutput{}, err
	}
	return nil, UnwatchOutput{Stopped: n}, nil
}

func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocRefInput,
) (*mcp.CallToolResult, CheckOutput, error) {
	docID, err := s.ports.lookupID(input.DocRef, domain.DocType(input.DocType))
	if err != nil {
		return nil, CheckOutput{}, err
	}

	results, err := s.ports.Tracker.Check(ctx, s.ports.Tenant, docID)
	if err != nil {
		return nil, CheckOutput{}, err
	}

	output := CheckOutput{Results: make([]CheckResultOutput, len(results))}
	for i, r := range results {
		output.Results[i] = CheckResultOutput{
			Destination:      r.Destination,
			Changed:          r.Detection.HasChanged,
			ChangeType:       string(r.Detection.ChangeType),
			Debounced:        r.Detection.Debounced,
			Reason:           r.Detection.Reason,
			NotificationSent: r.NotificationSent,
			NotificationRef:  r.NotificationRef,
			Error:            r.Error,
		}
	}
	return nil, output, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Tracker.List(ctx, s.ports.Tenant, input.IncludeInactive)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]TrackedOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toTrackedOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	docID, err := s.ports.lookupID(input.DocRef, domain.DocType(input.DocType))
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	records, err := s.ports.Tracker.History(ctx, s.ports.Tenant, docID, input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	output := HistoryOutput{
		Records: make([]ChangeOutput, len(records)),
		Count:   len(records),
	}
	for i := range records {
		output.Records[i] = toChangeOutput(&records[i])
	}
	return nil, output, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocRefInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	docID, err := s.ports.lookupID(input.DocRef, domain.DocType(input.DocType))
	if err != nil {
		return nil, StatsOutput{}, err
	}

	stats, err := s.ports.Tracker.Stats(ctx, s.ports.Tenant, docID)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	byType := make(map[string]int, len(stats.ByType))
	for ct, n := range stats.ByType {
		byType[string(ct)] = n
	}
	return nil, StatsOutput{
		DocID:             stats.DocID,
		TotalChanges:      stats.TotalChanges,
		ByType:            byType,
		Debounced:         stats.Debounced,
		NotificationsSent: stats.NotificationsSent,
		NotifyFailures:    stats.NotifyFailures,
		DistinctModifiers: stats.DistinctModifiers,
		FirstDetectedAt:   formatTime(stats.FirstDetectedAt),
		LastDetectedAt:    formatTime(stats.LastDetectedAt),
	}, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Tracker.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	m := status.Metrics
	return nil, StatusOutput{
		Health:                string(status.Health),
		DocsTracked:           m.DocsTracked,
		CyclesCompleted:       m.CyclesCompleted,
		LastPollStartedAt:     formatTime(m.LastPollStartedAt),
		LastPollDurationMs:    m.LastPollDuration.Milliseconds(),
		OperationsLastHour:    m.OperationsLastHour,
		ErrorsLastHour:        m.ErrorsLastHour,
		NotificationsLastHour: m.NotificationsLastHour,
		APICallsLastHour:      m.APICallsLastHour,
		RateLimitErrors:       m.RateLimitErrorsLastHour,
		SuccessRate:           m.SuccessRate,
	}, nil
}

func toTrackedOutput(doc *domain.TrackedDocument) TrackedOutput {
	return TrackedOutput{
		ID:             doc.ID,
		DocID:          doc.DocID,
		DocType:        string(doc.DocType),
		Title:          doc.Title,
		Destination:    doc.NotifyDestination,
		Active:         doc.Active,
		LastModifier:   doc.LastKnownModifier,
		LastModifiedAt: formatTime(doc.LastKnownModifiedAt),
		LastNotifiedAt: formatTime(doc.LastNotificationAt),
		LastCheckedAt:  formatTime(doc.LastCheckedAt),
	}
}

func toChangeOutput(rec *domain.ChangeAuditRecord) ChangeOutput {
	return ChangeOutput{
		ID:                rec.ID,
		ChangeType:        string(rec.ChangeType),
		Destination:       rec.Destination,
		PreviousModifier:  rec.PreviousModifier,
		NewModifier:       rec.NewModifier,
		NewModifiedAt:     formatTime(rec.NewModifiedAt),
		Debounced:         rec.Debounced,
		NotificationSent:  rec.NotificationSent,
		NotificationError: rec.NotificationError,
		CorrectsID:        rec.CorrectsID,
		DetectedAt:        formatTime(rec.DetectedAt),
	}
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
