// Package mcp provides an MCP (Model Context Protocol) server adapter for docwatch.
// It lets AI assistants watch documents and inspect their change history.
package mcp

import "errors"

// ErrMissingTrackerService is returned when the tracker service is not provided.
var ErrMissingTrackerService = errors.New("mcp: tracker service is required")
